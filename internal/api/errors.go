package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"schoolportal/internal/auth"
	"schoolportal/internal/repo"
	"schoolportal/internal/session"
	"schoolportal/internal/transfer"
	"schoolportal/internal/validate"
)

var errNotFound = errors.New("not found")

// respondError maps domain errors onto status codes. Anything unrecognised
// is logged and reported as a 500 without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *validate.Error
	var redirect *session.RedirectError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Error()}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
	case errors.As(err, &redirect):
		status := http.StatusUnauthorized
		if redirect.Target == session.TargetUnauthorized {
			status = http.StatusForbidden
		}
		c.AbortWithStatusJSON(status, gin.H{"error": redirect.Reason, "redirect": redirect.Target})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid login credentials"})
	case errors.Is(err, auth.ErrDuplicateEmail):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Email already registered."})
	case errors.Is(err, session.ErrUnknownRole):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unknown role. Cannot continue."})
	case errors.Is(err, repo.ErrNoActiveOrg):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No active organization", "redirect": session.TargetLogin})
	case errors.Is(err, transfer.ErrNothingToExport):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.log.Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// badRequest reports a body that could not be decoded.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
