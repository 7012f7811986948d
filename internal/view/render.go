// Package view projects repository state into what the portal pages show.
// Every function here is pure: the same records always give the same output.
package view

import (
	"math"
	"strconv"
	"strings"

	"schoolportal/internal/model"
)

// Empty-state texts.
const (
	EmptyAttendance    = "No attendance history"
	EmptyEvaluations   = "No evaluations yet"
	EmptyPayments      = "No payments yet"
	EmptyClasses       = "No assigned classes"
	EmptyAnnouncements = "No announcements"
	EmptyStudents      = "No students yet"

	// EmptyCell marks a timetable cell without a slot.
	EmptyCell = "—"
)

// Line is one entry of a rendered list.
type Line struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// List is a rendered list; Empty holds the placeholder when it has no lines.
type List struct {
	Lines []Line `json:"lines"`
	Empty string `json:"empty,omitempty"`
}

func list(lines []Line, empty string) List {
	if len(lines) == 0 {
		return List{Lines: []Line{}, Empty: empty}
	}
	return List{Lines: lines}
}

// KPIs are the headline numbers of the teacher dashboard.
type KPIs struct {
	TotalTeachers   int     `json:"totalTeachers"`
	MyPaymentsCount int     `json:"myPaymentsCount"`
	TotalPaid       float64 `json:"totalPaid"`
	AttendanceCount int     `json:"attendanceCount"`
	AttendanceRate  int     `json:"attendanceRate"`
}

// ComputeKPIs derives the dashboard numbers for email. The attendance rate
// divides the teacher's clock-ins by the number of teacher profiles and is
// 100 when there are none.
func ComputeKPIs(teachers []model.Teacher, payments []model.Payment, log []model.TeacherAttendance, email string) KPIs {
	k := KPIs{TotalTeachers: len(teachers), AttendanceRate: 100}
	for _, p := range payments {
		if model.SameEmail(p.TeacherEmail, email) {
			k.MyPaymentsCount++
			k.TotalPaid += p.Amount.Float()
		}
	}
	for _, a := range log {
		if model.SameEmail(a.TeacherEmail, email) && a.Action == model.ActionIn {
			k.AttendanceCount++
		}
	}
	if len(teachers) > 0 {
		k.AttendanceRate = int(math.Round(float64(k.AttendanceCount) / float64(len(teachers)) * 100))
	}
	return k
}

// MyAttendance lists email's clock actions, most recent first.
func MyAttendance(log []model.TeacherAttendance, email string, f Formatter) List {
	var lines []Line
	for i := len(log) - 1; i >= 0; i-- {
		a := log[i]
		if !model.SameEmail(a.TeacherEmail, email) {
			continue
		}
		lines = append(lines, Line{Title: strings.ToUpper(a.Action) + " • " + f.DateTime(a.Date.Time)})
	}
	return list(lines, EmptyAttendance)
}

// Chart is a score series in chronological order.
type Chart struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// chartPoints is how many evaluations the chart plots.
const chartPoints = 12

// MyPerformance lists email's evaluations most recent first, plus a chart of
// the latest twelve.
func MyPerformance(evals []model.PerformanceEvaluation, email string, f Formatter) (List, Chart) {
	var mine []model.PerformanceEvaluation
	for _, e := range evals {
		if model.SameEmail(e.TeacherEmail, email) {
			mine = append(mine, e)
		}
	}
	lines := make([]Line, 0, len(mine))
	for i := len(mine) - 1; i >= 0; i-- {
		e := mine[i]
		lines = append(lines, Line{
			Title:  "Score: " + string(e.Score),
			Detail: e.Comment + " • " + f.DateTime(e.Date.Time),
		})
	}

	tail := mine
	if len(tail) > chartPoints {
		tail = tail[len(tail)-chartPoints:]
	}
	chart := Chart{Labels: make([]string, 0, len(tail)), Scores: make([]float64, 0, len(tail))}
	for _, e := range tail {
		chart.Labels = append(chart.Labels, f.Date(e.Date.Time))
		chart.Scores = append(chart.Scores, e.Score.Float())
	}
	return list(lines, EmptyEvaluations), chart
}

// MyPayments lists email's payments most recent first.
func MyPayments(payments []model.Payment, email string, f Formatter) List {
	var lines []Line
	for i := len(payments) - 1; i >= 0; i-- {
		p := payments[i]
		if !model.SameEmail(p.TeacherEmail, email) {
			continue
		}
		lines = append(lines, Line{Title: f.Amount(p.Amount), Detail: f.DateTime(p.Date.Time) + " • " + p.Note})
	}
	return list(lines, EmptyPayments)
}

// MyClasses lists the classes assigned to email, compared case-insensitively.
func MyClasses(classes []model.Class, email string) List {
	var lines []Line
	for _, c := range classes {
		if !strings.EqualFold(c.TeacherEmail, email) {
			continue
		}
		lines = append(lines, Line{Title: c.Name, Detail: c.Subject + " • " + strconv.Itoa(len(c.Students)) + " students"})
	}
	return list(lines, EmptyClasses)
}

// Announcements lists the organization's announcements most recent first.
func Announcements(items []model.Announcement, f Formatter) List {
	lines := make([]Line, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		a := items[i]
		lines = append(lines, Line{Title: a.Title, Detail: a.Body + " • " + f.DateTime(a.Date.Time)})
	}
	return list(lines, EmptyAnnouncements)
}

// Grid is the weekly timetable: one row per time slot, one cell per weekday.
type Grid struct {
	Days []string  `json:"days"`
	Rows []GridRow `json:"rows"`
}

type GridRow struct {
	Time  string   `json:"time"`
	Cells []string `json:"cells"`
}

// Timetable fills the grid from schedule. When several slots share a day and
// time, the first one accepted by keep wins.
func Timetable(schedule []model.ScheduleSlot, keep func(model.ScheduleSlot) bool, label func(model.ScheduleSlot) string) Grid {
	g := Grid{Days: model.Weekdays, Rows: make([]GridRow, 0, len(model.SlotTimes))}
	for _, t := range model.SlotTimes {
		row := GridRow{Time: t, Cells: make([]string, len(model.Weekdays))}
		for d := 1; d <= len(model.Weekdays); d++ {
			row.Cells[d-1] = EmptyCell
			for _, s := range schedule {
				if s.Day == d && s.Time == t && (keep == nil || keep(s)) {
					row.Cells[d-1] = label(s)
					break
				}
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

// ClassTimetable is the organization-wide grid of the classes page.
func ClassTimetable(schedule []model.ScheduleSlot) Grid {
	return Timetable(schedule, nil, func(s model.ScheduleSlot) string {
		return s.ClassName + " • " + s.TeacherName
	})
}

// TeacherTimetable shows only email's slots, as on the teacher dashboard.
func TeacherTimetable(schedule []model.ScheduleSlot, email string) Grid {
	return Timetable(schedule,
		func(s model.ScheduleSlot) bool { return model.SameEmail(s.TeacherEmail, email) },
		func(s model.ScheduleSlot) string { return s.ClassName + " • " + s.Subject })
}

// ClassRow is one line of the classes table. Index counts from 1 and is the
// position the rename action refers to.
type ClassRow struct {
	Index        int    `json:"index"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	TeacherName  string `json:"teacherName"`
	StudentCount int    `json:"studentCount"`
}

func ClassesTable(classes []model.Class) []ClassRow {
	rows := make([]ClassRow, 0, len(classes))
	for i, c := range classes {
		rows = append(rows, ClassRow{
			Index:        i + 1,
			ID:           c.ID.String(),
			Name:         c.Name,
			Subject:      c.Subject,
			TeacherName:  c.TeacherName,
			StudentCount: len(c.Students),
		})
	}
	return rows
}

type StudentRow struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Roll  string `json:"roll"`
	Phone string `json:"phone"`
}

// StudentTable is the roster; Empty is set when there are no students.
type StudentTable struct {
	Rows  []StudentRow `json:"rows"`
	Empty string       `json:"empty,omitempty"`
}

func StudentsTable(students []model.Student) StudentTable {
	if len(students) == 0 {
		return StudentTable{Rows: []StudentRow{}, Empty: EmptyStudents}
	}
	rows := make([]StudentRow, 0, len(students))
	for i, s := range students {
		rows = append(rows, StudentRow{
			Index: i + 1,
			ID:    s.ID.String(),
			Name:  s.FirstName + " " + s.LastName,
			Class: s.Class,
			Roll:  s.Roll,
			Phone: s.Phone,
		})
	}
	return StudentTable{Rows: rows}
}
