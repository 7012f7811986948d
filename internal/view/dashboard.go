package view

import (
	"context"

	"schoolportal/internal/model"
	"schoolportal/internal/repo"
)

// Header identifies whose dashboard is shown.
type Header struct {
	Org  string `json:"org"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// TeacherDashboard is everything the teacher dashboard shows.
type TeacherDashboard struct {
	Header        Header `json:"header"`
	KPIs          KPIs   `json:"kpis"`
	AttendanceKPI string `json:"attendanceRate"`
	TotalPaid     string `json:"totalPaid"`
	Attendance    List   `json:"attendance"`
	Performance   List   `json:"performance"`
	Chart         Chart  `json:"chart"`
	Payments      List   `json:"payments"`
	Classes       List   `json:"classes"`
	Timetable     Grid   `json:"timetable"`
	Announcements List   `json:"announcements"`
}

// BuildTeacherDashboard reads the collections the dashboard depends on and
// projects them for sess.
func BuildTeacherDashboard(ctx context.Context, r *repo.Repository, sess model.Session, f Formatter) (TeacherDashboard, error) {
	teachers, err := r.Teachers().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	log, err := r.TeacherAttendance().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	payments, err := r.Payments().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	evals, err := r.Performance().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	classes, err := r.Classes().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	schedule, err := r.Schedule().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	announcements, err := r.Announcements().All(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	return TeacherDashboardFrom(r.Org(), sess, DashboardData{
		Teachers:      teachers,
		Attendance:    log,
		Payments:      payments,
		Performance:   evals,
		Classes:       classes,
		Schedule:      schedule,
		Announcements: announcements,
	}, f), nil
}

// DashboardData is the repository state a teacher dashboard is built from.
type DashboardData struct {
	Teachers      []model.Teacher
	Attendance    []model.TeacherAttendance
	Payments      []model.Payment
	Performance   []model.PerformanceEvaluation
	Classes       []model.Class
	Schedule      []model.ScheduleSlot
	Announcements []model.Announcement
}

// TeacherDashboardFrom projects data for sess.
func TeacherDashboardFrom(org string, sess model.Session, data DashboardData, f Formatter) TeacherDashboard {
	email := sess.Email
	h := Header{Org: org, Name: sess.Name, Role: string(sess.Role)}
	if h.Name == "" {
		h.Name = email
	}
	if h.Role == "" {
		h.Role = "Teacher"
	}

	k := ComputeKPIs(data.Teachers, data.Payments, data.Attendance, email)
	perf, chart := MyPerformance(data.Performance, email, f)
	return TeacherDashboard{
		Header:        h,
		KPIs:          k,
		AttendanceKPI: f.Number(float64(k.AttendanceRate)) + "%",
		TotalPaid:     f.Money(k.TotalPaid),
		Attendance:    MyAttendance(data.Attendance, email, f),
		Performance:   perf,
		Chart:         chart,
		Payments:      MyPayments(data.Payments, email, f),
		Classes:       MyClasses(data.Classes, email),
		Timetable:     TeacherTimetable(data.Schedule, email),
		Announcements: Announcements(data.Announcements, f),
	}
}

// ClassesPage is what the classes page shows.
type ClassesPage struct {
	Org       string     `json:"org"`
	Classes   []ClassRow `json:"classes"`
	Timetable Grid       `json:"timetable"`
}

func BuildClassesPage(ctx context.Context, r *repo.Repository) (ClassesPage, error) {
	classes, err := r.Classes().All(ctx)
	if err != nil {
		return ClassesPage{}, err
	}
	schedule, err := r.Schedule().All(ctx)
	if err != nil {
		return ClassesPage{}, err
	}
	return ClassesPage{Org: r.Org(), Classes: ClassesTable(classes), Timetable: ClassTimetable(schedule)}, nil
}
