package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"schoolportal/internal/repo"
)

var wsUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type changeEvent struct {
	Collection repo.Name `json:"collection"`
	Org        string    `json:"org"`
}

// ---------- Change stream ----------

// Changes upgrades to a websocket and pushes one event per write to a
// collection of the caller's organization. Pages re-read the collection
// named in the event. The subscription is in place before the handshake
// completes.
func (h *Handler) Changes(c *gin.Context) {
	r := currentRepo(c)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := make(chan repo.Name, 32)
	stop, err := r.OnChange(ctx, func(name repo.Name) {
		select {
		case events <- name:
		default:
		}
	})
	if err != nil {
		h.log.Warn("change stream unavailable", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "change stream unavailable"})
		return
	}
	defer stop()

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Clients send nothing; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug("change stream closed", zap.Error(err))
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case name := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(changeEvent{Collection: name, Org: r.Org()}); err != nil {
				h.log.Debug("change push failed", zap.Error(err))
				return
			}
		}
	}
}
