package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"schoolportal/internal/auth"
	"schoolportal/internal/model"
	"schoolportal/internal/notify"
	"schoolportal/internal/repo"
	"schoolportal/internal/session"
)

const (
	ctxSession = "session"
	ctxRepo    = "repo"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Tokens   auth.TokenPair `json:"tokens"`
	Redirect string         `json:"redirect"`
	Profile  model.Profile  `json:"profile"`
}

// ---------- Registration ----------

func (h *Handler) Register(c *gin.Context) {
	var req auth.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	acc, err := h.accounts.For(repo.OrganizationsUsersKey).Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("account registered", zap.String("org", acc.Org), zap.String("role", string(acc.Role)))
	c.JSON(http.StatusCreated, gin.H{"profile": acc.Profile(), "redirect": session.TargetLogin})
}

// ---------- Login ----------

func (h *Handler) Login(c *gin.Context) {
	h.login(c, session.SiteSlot())
}

// TeacherLogin signs in against the organization's own teacher accounts.
func (h *Handler) TeacherLogin(c *gin.Context) {
	slot, ok := session.SlotFor(session.PortalTeacher, c.Param("org"))
	if !ok {
		h.respondError(c, repo.ErrNoActiveOrg)
		return
	}
	h.login(c, slot)
}

func (h *Handler) login(c *gin.Context, slot session.Slot) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	sid := uuid.NewString()
	mgr := session.NewManager(h.store, slot.ForToken(sid), session.WithRegistries(h.accounts))

	sess, err := mgr.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	target, err := session.Home(sess.Role)
	if err != nil {
		_ = mgr.Logout(ctx)
		h.respondError(c, err)
		return
	}

	org := sess.Org
	if org == "" {
		org = slot.Org
	}
	if sess.Role == model.RoleTeacher {
		if err := h.prepareWorkspace(ctx, org); err != nil {
			_ = mgr.Logout(ctx)
			h.respondError(c, err)
			return
		}
	}
	tokens, err := auth.Issue(auth.Identity{
		Email:     sess.Email,
		Role:      sess.Role,
		Org:       org,
		Portal:    slot.Portal,
		SessionID: sid,
	}, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		_ = mgr.Logout(ctx)
		h.respondError(c, errors.Wrap(err, "issue tokens"))
		return
	}
	c.JSON(http.StatusOK, loginResponse{Tokens: tokens, Redirect: target, Profile: sess.Profile()})
}

// prepareWorkspace creates the teacher collections that org is still missing.
func (h *Handler) prepareWorkspace(ctx context.Context, org string) error {
	r, err := repo.New(h.store, repo.Scope{Org: org})
	if err != nil {
		return err
	}
	return r.EnsureTeacherCollections(ctx)
}

// Refresh trades a refresh token for a new pair while its session exists.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil || claims.Kind != auth.KindRefresh {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "redirect": session.TargetLogin})
		return
	}
	if _, err := h.manager(claims).Require(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	tokens, err := auth.Issue(claims.Identity(), h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		h.respondError(c, errors.Wrap(err, "issue tokens"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout drops the session behind the token. Tokens issued for it stop
// working even before they expire.
func (h *Handler) Logout(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	if err := h.manager(claims).Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": session.TargetLogin})
}

func (h *Handler) Me(c *gin.Context) {
	sess := currentSession(c)
	target, _ := session.Home(sess.Role)
	c.JSON(http.StatusOK, gin.H{"profile": sess.Profile(), "home": target})
}

// ---------- Session guard ----------

func (h *Handler) manager(claims auth.Claims) *session.Manager {
	slot, ok := session.SlotFor(claims.Portal, claims.Org)
	if !ok {
		slot = session.SiteSlot()
	}
	return session.NewManager(h.store, slot.ForToken(claims.SessionID), session.WithRegistries(h.accounts))
}

// requireSession loads the session behind the bearer token, checks its role
// and binds a repository for its organization. Writes made during the
// request are published under the session id, so the session's own change
// stream does not echo them.
func (h *Handler) requireSession(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			h.respondError(c, &session.RedirectError{Target: session.TargetLogin, Reason: "not signed in"})
			return
		}
		sess, err := h.manager(claims).Require(c.Request.Context(), roles...)
		if err != nil {
			h.respondError(c, err)
			return
		}
		org := sess.Org
		if org == "" {
			org = claims.Org
		}
		r, err := repo.New(h.store, repo.Scope{Org: org, Session: &sess},
			repo.WithBus(h.bus), repo.WithOrigin(claims.SessionID))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Request = c.Request.WithContext(notify.WithOrigin(c.Request.Context(), claims.SessionID))
		c.Set(ctxSession, sess)
		c.Set(ctxRepo, r)
		c.Next()
	}
}

func currentSession(c *gin.Context) model.Session {
	v, _ := c.Get(ctxSession)
	sess, _ := v.(model.Session)
	return sess
}

func currentRepo(c *gin.Context) *repo.Repository {
	v, _ := c.Get(ctxRepo)
	r, _ := v.(*repo.Repository)
	return r
}
