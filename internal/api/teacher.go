package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/attendance"
	"schoolportal/internal/model"
	"schoolportal/internal/transfer"
	"schoolportal/internal/view"
)

// ---------- Dashboard ----------

func (h *Handler) TeacherDashboard(c *gin.Context) {
	d, err := view.BuildTeacherDashboard(c.Request.Context(), currentRepo(c), currentSession(c), h.fmt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) TeacherDashboardHTML(c *gin.Context) {
	d, err := view.BuildTeacherDashboard(c.Request.Context(), currentRepo(c), currentSession(c), h.fmt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, view.TemplateTeacherDashboard, d)
}

// ---------- Clock ----------

type clockRequest struct {
	Note string `json:"note"`
}

func (h *Handler) attendance(c *gin.Context) *attendance.Service {
	return attendance.NewService(currentRepo(c), h.cfg.DedupWindow)
}

func (h *Handler) ClockIn(c *gin.Context)  { h.clock(c, model.ActionIn) }
func (h *Handler) ClockOut(c *gin.Context) { h.clock(c, model.ActionOut) }

func (h *Handler) clock(c *gin.Context, action string) {
	var req clockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	svc := h.attendance(c)
	email := currentSession(c).Email
	var (
		rec model.TeacherAttendance
		err error
	)
	if action == model.ActionIn {
		rec, err = svc.ClockIn(c.Request.Context(), email, req.Note)
	} else {
		rec, err = svc.ClockOut(c.Request.Context(), email, req.Note)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ClockState(c *gin.Context) {
	state, err := h.attendance(c).State(c.Request.Context(), currentSession(c).Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// ---------- Classes ----------

func (h *Handler) ListClasses(c *gin.Context) {
	page, err := view.BuildClassesPage(c.Request.Context(), currentRepo(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) ClassesHTML(c *gin.Context) {
	page, err := view.BuildClassesPage(c.Request.Context(), currentRepo(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, view.TemplateClasses, page)
}

func (h *Handler) AddClass(c *gin.Context) {
	var req model.Class
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cls, err := currentRepo(c).AddClass(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cls)
}

func (h *Handler) UpdateClass(c *gin.Context) {
	var patch model.ClassPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	found, err := currentRepo(c).UpdateClass(c.Request.Context(), c.Param("id"), patch)
	h.respondUpdated(c, found, err)
}

// RenameClassAt renames by table position, counted from 1 as displayed.
func (h *Handler) RenameClassAt(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	found, err := currentRepo(c).RenameClassAt(c.Request.Context(), index-1, req.Name)
	h.respondUpdated(c, found, err)
}

func (h *Handler) ExportClasses(c *gin.Context) {
	r := currentRepo(c)
	var buf bytes.Buffer
	if err := transfer.ExportRepository(c.Request.Context(), &buf, r); err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+transfer.ClassesFilename(r.Org())+`"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (h *Handler) ImportClasses(c *gin.Context) {
	b, err := transfer.DecodeClasses(c.Request.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := transfer.ApplyClasses(c.Request.Context(), currentRepo(c), b); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Import done", "classes": b.HasClasses, "schedule": b.HasSchedule})
}

// ---------- Schedule ----------

func (h *Handler) ListSchedule(c *gin.Context) {
	slots, err := currentRepo(c).Schedule().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": slots})
}

func (h *Handler) AddScheduleSlot(c *gin.Context) {
	var req model.ScheduleSlot
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	slot, err := currentRepo(c).AddScheduleSlot(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h *Handler) UpdateScheduleSlot(c *gin.Context) {
	var patch model.ScheduleSlotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	found, err := currentRepo(c).UpdateScheduleSlot(c.Request.Context(), c.Param("id"), patch)
	h.respondUpdated(c, found, err)
}

// DeleteScheduleSlot succeeds whether or not the slot exists.
func (h *Handler) DeleteScheduleSlot(c *gin.Context) {
	found, err := currentRepo(c).DeleteScheduleSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": found})
}

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := currentRepo(c).Students().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "table": view.StudentsTable(students)})
}

func (h *Handler) StudentsHTML(c *gin.Context) {
	students, err := currentRepo(c).Students().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, view.TemplateStudents, view.StudentsTable(students))
}

func (h *Handler) AddStudent(c *gin.Context) {
	var req model.Student
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := currentRepo(c).AddStudent(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var patch model.StudentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	found, err := currentRepo(c).UpdateStudent(c.Request.Context(), c.Param("id"), patch)
	h.respondUpdated(c, found, err)
}

// DeleteStudent succeeds whether or not the student exists.
func (h *Handler) DeleteStudent(c *gin.Context) {
	found, err := currentRepo(c).DeleteStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": found})
}

func (h *Handler) ExportStudentsCSV(c *gin.Context) {
	r := currentRepo(c)
	var buf bytes.Buffer
	if err := transfer.ExportRoster(c.Request.Context(), &buf, r); err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+transfer.StudentsFilename(r.Org(), "csv")+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) ExportStudentsXLSX(c *gin.Context) {
	r := currentRepo(c)
	students, err := r.Students().All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := transfer.ExportStudentsXLSX(&buf, students); err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+transfer.StudentsFilename(r.Org(), "xlsx")+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ImportStudents accepts a CSV body, or a workbook when the content type
// says so.
func (h *Handler) ImportStudents(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	decode := transfer.DecodeStudentsCSV
	if strings.Contains(c.ContentType(), "spreadsheetml") {
		decode = transfer.DecodeStudentsXLSX
	}
	students, err := decode(bytes.NewReader(body))
	if err != nil {
		h.respondError(c, err)
		return
	}
	added, err := transfer.ImportStudents(c.Request.Context(), currentRepo(c), students)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": len(added)})
}

func (h *Handler) StudentRate(c *gin.Context) {
	rate, ok, err := h.attendance(c).StudentRate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"rate": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate": rate})
}

func (h *Handler) MarkStudent(c *gin.Context) {
	var req attendance.Mark
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.TeacherEmail = currentSession(c).Email
	rec, err := h.attendance(c).MarkStudent(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// ---------- Leave ----------

func (h *Handler) MyLeaveRequests(c *gin.Context) {
	email := currentSession(c).Email
	reqs, err := currentRepo(c).LeaveRequests().Filter(c.Request.Context(), func(l model.LeaveRequest) bool {
		return model.SameEmail(l.TeacherEmail, email)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaveRequests": reqs})
}

func (h *Handler) RequestLeave(c *gin.Context) {
	var req model.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.TeacherEmail = currentSession(c).Email
	l, err := currentRepo(c).RequestLeave(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// respondUpdated answers an update-by-id: 404 when nothing matched.
func (h *Handler) respondUpdated(c *gin.Context, found bool, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		h.respondError(c, errNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
