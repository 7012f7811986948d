package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolportal/internal/auth"
	"schoolportal/internal/model"
	"schoolportal/internal/repo"
)

// ---------- Teachers ----------

func (h *Handler) ListTeachers(c *gin.Context) {
	teachers, err := currentRepo(c).Teachers().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers})
}

func (h *Handler) AddTeacher(c *gin.Context) {
	var req model.Teacher
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := currentRepo(c).Teachers().Add(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTeacher(c *gin.Context) {
	var patch model.TeacherPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	found, err := currentRepo(c).UpdateTeacher(c.Request.Context(), c.Param("id"), patch)
	h.respondUpdated(c, found, err)
}

// ---------- Teacher accounts ----------

func (h *Handler) ListTeacherAccounts(c *gin.Context) {
	accounts, err := currentRepo(c).TeacherAccounts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	profiles := make([]model.Profile, 0, len(accounts))
	for _, a := range accounts {
		profiles = append(profiles, a.Profile())
	}
	c.JSON(http.StatusOK, gin.H{"accounts": profiles})
}

// AddTeacherAccount creates a teacher-portal login in the HR user's
// organization. Org and role come from the session, not the body.
func (h *Handler) AddTeacherAccount(c *gin.Context) {
	var req auth.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r := currentRepo(c)
	req.Org = r.Org()
	req.Role = model.RoleTeacher
	acc, err := h.accounts.For(r.Key(repo.TeacherAccounts)).Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("teacher account created", zap.String("org", acc.Org))
	c.JSON(http.StatusCreated, gin.H{"profile": acc.Profile()})
}

// ---------- Payments & performance ----------

func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := currentRepo(c).Payments().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) RecordPayment(c *gin.Context) {
	var req model.Payment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := currentRepo(c).RecordPayment(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPerformance(c *gin.Context) {
	evals, err := currentRepo(c).Performance().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"performance": evals})
}

func (h *Handler) RecordEvaluation(c *gin.Context) {
	var req model.PerformanceEvaluation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := currentRepo(c).RecordEvaluation(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ---------- Announcements ----------

func (h *Handler) ListAnnouncements(c *gin.Context) {
	items, err := currentRepo(c).Announcements().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": items})
}

func (h *Handler) Announce(c *gin.Context) {
	var req model.Announcement
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := currentRepo(c).Announce(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ---------- Leave ----------

func (h *Handler) ListLeaveRequests(c *gin.Context) {
	reqs, err := currentRepo(c).LeaveRequests().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaveRequests": reqs})
}

func (h *Handler) DecideLeave(c *gin.Context) {
	var req model.LeaveDecision
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	found, err := currentRepo(c).DecideLeave(c.Request.Context(), c.Param("id"), req)
	h.respondUpdated(c, found, err)
}

// ---------- Messages ----------

func (h *Handler) Inbox(c *gin.Context) {
	msgs, err := currentRepo(c).Inbox(c.Request.Context(), currentSession(c).Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	unread := 0
	for _, m := range msgs {
		if !m.Read {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "unread": unread})
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req model.Message
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.FromEmail = currentSession(c).Email
	m, err := currentRepo(c).SendMessage(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// MarkMessageRead only touches messages addressed to the caller.
func (h *Handler) MarkMessageRead(c *gin.Context) {
	r := currentRepo(c)
	ctx := c.Request.Context()
	m, ok, err := r.Messages().Find(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok || !model.SameEmail(m.ToEmail, currentSession(c).Email) {
		h.respondError(c, errNotFound)
		return
	}
	found, err := r.MarkMessageRead(ctx, m.ID.String())
	h.respondUpdated(c, found, err)
}
