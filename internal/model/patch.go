package model

import "time"

// Patches list the fields that may change after creation. A nil pointer (or
// nil slice) leaves the field as it is.

type ClassPatch struct {
	Name         *string `json:"name"`
	Subject      *string `json:"subject"`
	TeacherName  *string `json:"teacherName"`
	TeacherEmail *string `json:"teacherEmail"`
	Students     []ID    `json:"students"`
}

func (p ClassPatch) Apply(c *Class) {
	setString(&c.Name, p.Name)
	setString(&c.Subject, p.Subject)
	setString(&c.TeacherName, p.TeacherName)
	setString(&c.TeacherEmail, p.TeacherEmail)
	if p.Students != nil {
		c.Students = append([]ID(nil), p.Students...)
	}
}

type StudentPatch struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Class     *string `json:"class"`
	Roll      *string `json:"roll"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

func (p StudentPatch) Apply(s *Student) {
	setString(&s.FirstName, p.FirstName)
	setString(&s.LastName, p.LastName)
	setString(&s.Class, p.Class)
	setString(&s.Roll, p.Roll)
	setString(&s.Phone, p.Phone)
	setString(&s.Email, p.Email)
}

type ScheduleSlotPatch struct {
	Day          *int    `json:"day"`
	Time         *string `json:"time"`
	ClassID      *ID     `json:"classId"`
	ClassName    *string `json:"className"`
	TeacherEmail *string `json:"teacherEmail"`
	TeacherName  *string `json:"teacherName"`
	Room         *string `json:"room"`
}

func (p ScheduleSlotPatch) Apply(s *ScheduleSlot) {
	if p.Day != nil {
		s.Day = *p.Day
	}
	setString(&s.Time, p.Time)
	if p.ClassID != nil {
		s.ClassID = *p.ClassID
	}
	setString(&s.ClassName, p.ClassName)
	setString(&s.TeacherEmail, p.TeacherEmail)
	setString(&s.TeacherName, p.TeacherName)
	setString(&s.Room, p.Room)
}

type TeacherPatch struct {
	Name    *string `json:"name"`
	Subject *string `json:"subject"`
	Phone   *string `json:"phone"`
}

func (p TeacherPatch) Apply(t *Teacher) {
	setString(&t.Name, p.Name)
	setString(&t.Subject, p.Subject)
	setString(&t.Phone, p.Phone)
}

// LeaveDecision rewrites a request's status. Any status may follow any other.
type LeaveDecision struct {
	Status LeaveStatus `json:"status" validate:"oneof=pending approved rejected"`
	HRNote string      `json:"hrNote"`
}

// Apply records the decision at the given time.
func (d LeaveDecision) Apply(l *LeaveRequest, at time.Time) {
	l.Status = d.Status
	l.HRNote = d.HRNote
	decided := At(at)
	l.DecidedAt = &decided
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

type MessagePatch struct {
	Read *bool `json:"read"`
}

func (p MessagePatch) Apply(m *Message) {
	if p.Read != nil {
		m.Read = *p.Read
	}
}
