// Package api serves the portal over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"schoolportal/internal/auth"
	"schoolportal/internal/config"
	"schoolportal/internal/httpmiddleware"
	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/notify"
	"schoolportal/internal/view"
)

// Handler holds what every route needs. store must already publish its
// writes on bus (see notify.Wrap) for the change stream to see them.
type Handler struct {
	cfg      config.App
	store    kv.Store
	bus      notify.Bus
	log      *zap.Logger
	fmt      view.Formatter
	reg      *prometheus.Registry
	accounts *auth.Registries
}

func New(cfg config.App, store kv.Store, bus notify.Bus, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(kv.Collectors()...)
	reg.MustRegister(auth.Collectors()...)
	reg.MustRegister(httpmiddleware.Collectors()...)
	return &Handler{
		cfg:      cfg,
		store:    store,
		bus:      bus,
		log:      log,
		fmt:      view.NewFormatter(cfg.Currency, cfg.TimeZone),
		reg:      reg,
		accounts: auth.NewRegistries(store),
	}
}

// Router builds the gin engine with every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket("api", h.cfg.RateLimitPerMin, h.cfg.RateLimitPerMin).GinMiddleware(nil))
	r.SetHTMLTemplate(view.Templates())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.reg, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.Healthz)

	loginLimit := httpmiddleware.NewSimpleTokenBucket("login", h.cfg.LoginRateLimitPerMin, h.cfg.LoginRateLimitPerMin).GinMiddleware(nil)

	v1 := r.Group("/v1")
	v1.POST("/register", h.Register)
	v1.POST("/login", loginLimit, h.Login)
	v1.POST("/orgs/:org/teacher-login", loginLimit, h.TeacherLogin)
	v1.POST("/refresh", h.Refresh)

	authed := v1.Group("", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.requireSession(), h.Me)
	authed.GET("/changes", h.requireSession(), h.Changes)

	teacher := authed.Group("/teacher", h.requireSession(model.RoleTeacher))
	{
		teacher.GET("/dashboard", h.TeacherDashboard)
		teacher.GET("/dashboard.html", h.TeacherDashboardHTML)

		teacher.POST("/clock-in", h.ClockIn)
		teacher.POST("/clock-out", h.ClockOut)
		teacher.GET("/clock-state", h.ClockState)

		teacher.GET("/classes", h.ListClasses)
		teacher.GET("/classes.html", h.ClassesHTML)
		teacher.POST("/classes", h.AddClass)
		teacher.PATCH("/classes/:id", h.UpdateClass)
		teacher.PUT("/classes/at/:index", h.RenameClassAt)
		teacher.GET("/classes/export", h.ExportClasses)
		teacher.POST("/classes/import", h.ImportClasses)

		teacher.GET("/schedule", h.ListSchedule)
		teacher.POST("/schedule", h.AddScheduleSlot)
		teacher.PATCH("/schedule/:id", h.UpdateScheduleSlot)
		teacher.DELETE("/schedule/:id", h.DeleteScheduleSlot)

		teacher.GET("/students", h.ListStudents)
		teacher.GET("/students.html", h.StudentsHTML)
		teacher.POST("/students", h.AddStudent)
		teacher.PATCH("/students/:id", h.UpdateStudent)
		teacher.DELETE("/students/:id", h.DeleteStudent)
		teacher.GET("/students/export.csv", h.ExportStudentsCSV)
		teacher.GET("/students/export.xlsx", h.ExportStudentsXLSX)
		teacher.POST("/students/import", h.ImportStudents)
		teacher.GET("/students/:id/attendance-rate", h.StudentRate)

		teacher.POST("/student-attendance", h.MarkStudent)

		teacher.GET("/messages", h.Inbox)
		teacher.POST("/messages", h.SendMessage)
		teacher.POST("/messages/:id/read", h.MarkMessageRead)

		teacher.GET("/leave-requests", h.MyLeaveRequests)
		teacher.POST("/leave-requests", h.RequestLeave)

		teacher.GET("/announcements", h.ListAnnouncements)
	}

	hr := authed.Group("/hr", h.requireSession(model.RoleHR))
	{
		hr.GET("/teachers", h.ListTeachers)
		hr.POST("/teachers", h.AddTeacher)
		hr.PATCH("/teachers/:id", h.UpdateTeacher)
		hr.GET("/teacher-accounts", h.ListTeacherAccounts)
		hr.POST("/teacher-accounts", h.AddTeacherAccount)

		hr.GET("/payments", h.ListPayments)
		hr.POST("/payments", h.RecordPayment)
		hr.GET("/performance", h.ListPerformance)
		hr.POST("/performance", h.RecordEvaluation)

		hr.GET("/announcements", h.ListAnnouncements)
		hr.POST("/announcements", h.Announce)

		hr.GET("/leave-requests", h.ListLeaveRequests)
		hr.POST("/leave-requests/:id/decision", h.DecideLeave)

		hr.GET("/messages", h.Inbox)
		hr.POST("/messages", h.SendMessage)
		hr.POST("/messages/:id/read", h.MarkMessageRead)
	}

	employee := authed.Group("/employee", h.requireSession(model.RoleEmployee))
	{
		employee.GET("/announcements", h.ListAnnouncements)
		employee.GET("/messages", h.Inbox)
		employee.POST("/messages", h.SendMessage)
		employee.POST("/messages/:id/read", h.MarkMessageRead)
	}

	return r
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	_, _, err := h.store.Get(c.Request.Context(), "healthz")
	if err != nil {
		h.log.Warn("store health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": true})
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
