// Package attendance records teacher clock actions and student marks.
package attendance

import (
	"context"
	"math"
	"time"

	"schoolportal/internal/model"
	"schoolportal/internal/repo"
	"schoolportal/internal/validate"
)

// State is derived from a teacher's latest clock action. It is never stored.
type State string

const (
	StateClockedIn  State = "clocked-in"
	StateClockedOut State = "clocked-out"
	StateUnknown    State = "unknown"
)

// Mark is a student attendance entry as submitted by a teacher.
type Mark struct {
	StudentID    model.ID `json:"studentId"`
	ClassID      model.ID `json:"classId"`
	Status       string   `json:"status"`
	Note         string   `json:"note"`
	TeacherEmail string   `json:"teacherEmail"`
}

// Service coordinates attendance logs and deduplication.
type Service struct {
	repo        *repo.Repository
	dedupWindow time.Duration
}

// NewService creates a service backed by a repository. A positive dedupWindow
// folds a repeated clock action inside the window into the earlier one.
func NewService(r *repo.Repository, dedupWindow time.Duration) *Service {
	if dedupWindow < 0 {
		dedupWindow = 0
	}
	return &Service{repo: r, dedupWindow: dedupWindow}
}

// ClockIn appends an "in" action for email.
func (s *Service) ClockIn(ctx context.Context, email, note string) (model.TeacherAttendance, error) {
	return s.clock(ctx, email, model.ActionIn, note)
}

// ClockOut appends an "out" action for email.
func (s *Service) ClockOut(ctx context.Context, email, note string) (model.TeacherAttendance, error) {
	return s.clock(ctx, email, model.ActionOut, note)
}

func (s *Service) clock(ctx context.Context, email, action, note string) (model.TeacherAttendance, error) {
	email = validate.CleanString(email, true)
	if email == "" {
		return model.TeacherAttendance{}, validate.Errorf("teacher email is required")
	}
	if s.dedupWindow > 0 {
		last, ok, err := s.latest(ctx, email)
		if err != nil {
			return model.TeacherAttendance{}, err
		}
		if ok && last.Action == action && s.repo.Now().Sub(last.Date.Time) < s.dedupWindow {
			return last, nil
		}
	}
	return s.repo.TeacherAttendance().Add(ctx, model.TeacherAttendance{
		TeacherEmail: email,
		Action:       action,
		Note:         note,
	})
}

// State reports whether email is clocked in according to the latest action
// in the log.
func (s *Service) State(ctx context.Context, email string) (State, error) {
	last, ok, err := s.latest(ctx, validate.CleanString(email, true))
	if err != nil {
		return StateUnknown, err
	}
	if !ok {
		return StateUnknown, nil
	}
	switch last.Action {
	case model.ActionIn:
		return StateClockedIn, nil
	case model.ActionOut:
		return StateClockedOut, nil
	}
	return StateUnknown, nil
}

func (s *Service) latest(ctx context.Context, email string) (model.TeacherAttendance, bool, error) {
	log, err := s.repo.TeacherAttendance().All(ctx)
	if err != nil {
		return model.TeacherAttendance{}, false, err
	}
	for i := len(log) - 1; i >= 0; i-- {
		if model.SameEmail(log[i].TeacherEmail, email) {
			return log[i], true, nil
		}
	}
	return model.TeacherAttendance{}, false, nil
}

// MarkStudent appends a student attendance entry. Status defaults to present.
func (s *Service) MarkStudent(ctx context.Context, m Mark) (model.StudentAttendance, error) {
	if m.Status == "" {
		m.Status = model.StatusPresent
	}
	return s.repo.StudentAttendance().Add(ctx, model.StudentAttendance{
		StudentID:    m.StudentID,
		ClassID:      m.ClassID,
		Status:       m.Status,
		Note:         m.Note,
		TeacherEmail: validate.CleanString(m.TeacherEmail, true),
	})
}

// StudentRate returns the share of a student's marks that are present or
// late, as a rounded percentage. It reports false when there are no marks.
func (s *Service) StudentRate(ctx context.Context, studentID string) (int, bool, error) {
	marks, err := s.repo.StudentAttendance().Filter(ctx, func(a model.StudentAttendance) bool {
		return string(a.StudentID) == studentID
	})
	if err != nil {
		return 0, false, err
	}
	if len(marks) == 0 {
		return 0, false, nil
	}
	attended := 0
	for _, m := range marks {
		if m.Status == model.StatusPresent || m.Status == model.StatusLate {
			attended++
		}
	}
	return int(math.Round(float64(attended) / float64(len(marks)) * 100)), true, nil
}
