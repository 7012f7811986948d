package model

import "time"

// Attendance actions and statuses.
const (
	ActionIn  = "in"
	ActionOut = "out"

	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// LeaveStatus is the decision state of a leave request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// Weekdays and time slots of the timetable grid.
var (
	Weekdays  = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}
	SlotTimes = []string{"08:00", "10:00", "12:00", "14:00"}
)

// Teacher is a staff profile kept by HR.
type Teacher struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name" validate:"notblank"`
	Email     string    `json:"email" validate:"required,email"`
	Subject   string    `json:"subject,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
}

type Class struct {
	ID           ID     `json:"id"`
	Name         string `json:"name" validate:"notblank"`
	Subject      string `json:"subject,omitempty"`
	TeacherName  string `json:"teacherName,omitempty"`
	TeacherEmail string `json:"teacherEmail,omitempty"`
	Students     []ID   `json:"students"`
}

// ScheduleSlot places a class in the weekly grid. Day runs 1 (Mon) to 5 (Fri).
// Nothing prevents two slots sharing a day, time and teacher.
type ScheduleSlot struct {
	ID           ID     `json:"id"`
	Day          int    `json:"day" validate:"min=1,max=5"`
	Time         string `json:"time" validate:"oneof=08:00 10:00 12:00 14:00"`
	ClassID      ID     `json:"classId,omitempty"`
	ClassName    string `json:"className" validate:"required_without=ClassID"`
	Subject      string `json:"subject,omitempty"`
	TeacherEmail string `json:"teacherEmail,omitempty"`
	TeacherName  string `json:"teacherName,omitempty"`
	Room         string `json:"room,omitempty"`
}

type Student struct {
	ID        ID        `json:"id"`
	FirstName string    `json:"firstName" validate:"notblank"`
	LastName  string    `json:"lastName"`
	Class     string    `json:"class"`
	Roll      string    `json:"roll"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email" validate:"omitempty,email"`
	CreatedAt Timestamp `json:"createdAt"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// TeacherAttendance is one clock action. The log is append-only; whether a
// teacher is clocked in is derived from the latest action.
type TeacherAttendance struct {
	ID           ID        `json:"id"`
	TeacherEmail string    `json:"teacherEmail"`
	Action       string    `json:"action"`
	Date         Timestamp `json:"date"`
	Note         string    `json:"note,omitempty"`
}

type StudentAttendance struct {
	ID           ID        `json:"id"`
	StudentID    ID        `json:"studentId" validate:"required"`
	ClassID      ID        `json:"classId,omitempty"`
	Status       string    `json:"status" validate:"oneof=present absent late excused"`
	Note         string    `json:"note,omitempty"`
	TeacherEmail string    `json:"teacherEmail,omitempty"`
	Date         Timestamp `json:"date"`
}

type Payment struct {
	ID           ID        `json:"id"`
	TeacherEmail string    `json:"teacherEmail" validate:"required,email"`
	Amount       Loose     `json:"amount"`
	Date         Timestamp `json:"date"`
	Note         string    `json:"note,omitempty"`
}

type PerformanceEvaluation struct {
	ID           ID        `json:"id"`
	TeacherEmail string    `json:"teacherEmail" validate:"required,email"`
	Score        Loose     `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	Date         Timestamp `json:"date"`
}

type Message struct {
	ID        ID        `json:"id"`
	FromEmail string    `json:"fromEmail" validate:"required"`
	ToEmail   string    `json:"toEmail" validate:"required"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body" validate:"notblank"`
	Read      bool      `json:"read"`
	CreatedAt Timestamp `json:"createdAt"`
}

type LeaveRequest struct {
	ID           ID          `json:"id"`
	TeacherEmail string      `json:"teacherEmail" validate:"required"`
	FromDate     string      `json:"fromDate" validate:"required,datetime=2006-01-02"`
	ToDate       string      `json:"toDate" validate:"required,datetime=2006-01-02"`
	Reason       string      `json:"reason"`
	Status       LeaveStatus `json:"status"`
	HRNote       string      `json:"hrNote,omitempty"`
	CreatedAt    Timestamp   `json:"createdAt"`
	DecidedAt    *Timestamp  `json:"decidedAt,omitempty"`
}

type Announcement struct {
	ID    ID        `json:"id"`
	Title string    `json:"title" validate:"notblank"`
	Body  string    `json:"body"`
	Date  Timestamp `json:"date"`
}

func (t *Teacher) GetID() string { return string(t.ID) }
func (t *Teacher) SetID(id string) { t.ID = ID(id) }
func (c *Class) GetID() string { return string(c.ID) }
func (c *Class) SetID(id string) { c.ID = ID(id) }
func (s *ScheduleSlot) GetID() string { return string(s.ID) }
func (s *ScheduleSlot) SetID(id string) { s.ID = ID(id) }
func (s *Student) GetID() string { return string(s.ID) }
func (s *Student) SetID(id string) { s.ID = ID(id) }
func (a *TeacherAttendance) GetID() string { return string(a.ID) }
func (a *TeacherAttendance) SetID(id string) { a.ID = ID(id) }
func (a *StudentAttendance) GetID() string { return string(a.ID) }
func (a *StudentAttendance) SetID(id string) { a.ID = ID(id) }
func (p *Payment) GetID() string { return string(p.ID) }
func (p *Payment) SetID(id string) { p.ID = ID(id) }
func (p *PerformanceEvaluation) GetID() string { return string(p.ID) }
func (p *PerformanceEvaluation) SetID(id string) { p.ID = ID(id) }
func (m *Message) GetID() string { return string(m.ID) }
func (m *Message) SetID(id string) { m.ID = ID(id) }
func (l *LeaveRequest) GetID() string { return string(l.ID) }
func (l *LeaveRequest) SetID(id string) { l.ID = ID(id) }
func (a *Announcement) GetID() string { return string(a.ID) }
func (a *Announcement) SetID(id string) { a.ID = ID(id) }

// Stamp fills the creation time of records that carry one, keeping any
// time the caller already set.
func (t *Teacher) Stamp(now time.Time) { setIfZero(&t.CreatedAt, now) }
func (s *Student) Stamp(now time.Time) { setIfZero(&s.CreatedAt, now) }
func (a *TeacherAttendance) Stamp(now time.Time) { setIfZero(&a.Date, now) }
func (a *StudentAttendance) Stamp(now time.Time) { setIfZero(&a.Date, now) }
func (p *Payment) Stamp(now time.Time) { setIfZero(&p.Date, now) }
func (p *PerformanceEvaluation) Stamp(now time.Time) { setIfZero(&p.Date, now) }
func (m *Message) Stamp(now time.Time) { setIfZero(&m.CreatedAt, now) }
func (l *LeaveRequest) Stamp(now time.Time) { setIfZero(&l.CreatedAt, now) }
func (a *Announcement) Stamp(now time.Time) { setIfZero(&a.Date, now) }

func setIfZero(t *Timestamp, now time.Time) {
	if t.IsZero() {
		t.Time = now
	}
}
