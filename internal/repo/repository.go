// Package repo gives typed access to an organization's collections. Every
// key it touches is prefixed with the organization, so two organizations
// sharing a store never see each other's records.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/notify"
	"schoolportal/internal/validate"
)

// Repository is bound to one organization.
type Repository struct {
	store kv.Store
	scope Scope
	ids   func() string
	now   func() time.Time
	bus   notify.Bus
	// origin is the writer this repository speaks for.
	origin string
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDs replaces the identifier generator.
func WithIDs(fn func() string) Option {
	return func(r *Repository) { r.ids = fn }
}

// WithClock replaces the time source used for creation stamps.
func WithClock(fn func() time.Time) Option {
	return func(r *Repository) { r.now = fn }
}

// WithBus sets the bus OnChange subscribes to.
func WithBus(b notify.Bus) Option {
	return func(r *Repository) { r.bus = b }
}

// WithOrigin names the writer this repository speaks for. OnChange skips
// changes published under that origin (see notify.WithOrigin).
func WithOrigin(origin string) Option {
	return func(r *Repository) { r.origin = origin }
}

// New returns a repository for scope.Org. It fails with ErrNoActiveOrg when
// the organization is blank.
func New(store kv.Store, scope Scope, opts ...Option) (*Repository, error) {
	scope.Org = strings.TrimSpace(scope.Org)
	if scope.Org == "" {
		return nil, ErrNoActiveOrg
	}
	r := &Repository{
		store: store,
		scope: scope,
		ids:   uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Repository) Scope() Scope { return r.scope }
func (r *Repository) Org() string { return r.scope.Org }

// Now reads the repository clock.
func (r *Repository) Now() time.Time { return r.now() }

// Key returns the storage key of name within this organization.
func (r *Repository) Key(name Name) string { return Key(r.scope.Org, name) }

func collection[T any, PT Entity[T]](r *Repository, name Name) Collection[T, PT] {
	return Collection[T, PT]{store: r.store, key: r.Key(name), ids: r.ids, now: r.now}
}

func (r *Repository) Teachers() Collection[model.Teacher, *model.Teacher] {
	return collection[model.Teacher](r, Teachers)
}

func (r *Repository) TeacherAttendance() Collection[model.TeacherAttendance, *model.TeacherAttendance] {
	return collection[model.TeacherAttendance](r, TeacherAttendance)
}

func (r *Repository) Payments() Collection[model.Payment, *model.Payment] {
	return collection[model.Payment](r, TeacherPayments)
}

func (r *Repository) Performance() Collection[model.PerformanceEvaluation, *model.PerformanceEvaluation] {
	return collection[model.PerformanceEvaluation](r, TeacherPerform)
}

func (r *Repository) Classes() Collection[model.Class, *model.Class] {
	return collection[model.Class](r, Classes)
}

func (r *Repository) Schedule() Collection[model.ScheduleSlot, *model.ScheduleSlot] {
	return collection[model.ScheduleSlot](r, ClassSchedule)
}

func (r *Repository) Students() Collection[model.Student, *model.Student] {
	return collection[model.Student](r, Students)
}

func (r *Repository) StudentAttendance() Collection[model.StudentAttendance, *model.StudentAttendance] {
	return collection[model.StudentAttendance](r, StudentAttendance)
}

func (r *Repository) Messages() Collection[model.Message, *model.Message] {
	return collection[model.Message](r, TeacherMessages)
}

func (r *Repository) LeaveRequests() Collection[model.LeaveRequest, *model.LeaveRequest] {
	return collection[model.LeaveRequest](r, LeaveRequests)
}

func (r *Repository) Announcements() Collection[model.Announcement, *model.Announcement] {
	return collection[model.Announcement](r, Announcements)
}

// TeacherAccounts returns the organization's own teacher sign-ins. They are
// written through an auth.Registry bound to Key(TeacherAccounts).
func (r *Repository) TeacherAccounts(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	ok, err := kv.GetJSON(ctx, r.store, r.Key(TeacherAccounts), &accounts)
	if err != nil {
		return nil, errors.Wrap(err, "load teacher accounts")
	}
	if !ok || accounts == nil {
		return []model.Account{}, nil
	}
	return accounts, nil
}

// EnsureTeacherCollections writes an empty list to every teacher workspace
// collection that is missing or unreadable. Stored lists, empty or not, are
// left alone.
func (r *Repository) EnsureTeacherCollections(ctx context.Context) error {
	for _, name := range []Name{Students, Classes, ClassSchedule, StudentAttendance, TeacherMessages, LeaveRequests} {
		var raw []any
		ok, err := kv.GetJSON(ctx, r.store, r.Key(name), &raw)
		if errors.Is(err, kv.ErrUnexpectedShape) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "load %s", name)
		}
		if ok {
			continue
		}
		if err := kv.SetJSON(ctx, r.store, r.Key(name), []any{}); err != nil {
			return errors.Wrapf(err, "init %s", name)
		}
	}
	return nil
}

// AddClass appends a class with an empty roster when none is given.
func (r *Repository) AddClass(ctx context.Context, c model.Class) (model.Class, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Students == nil {
		c.Students = []model.ID{}
	}
	return r.Classes().Add(ctx, c)
}

func (r *Repository) UpdateClass(ctx context.Context, id string, p model.ClassPatch) (bool, error) {
	return r.Classes().Update(ctx, id, p.Apply)
}

// RenameClassAt renames the class at position i in stored order. It reports
// false when i is out of range.
func (r *Repository) RenameClassAt(ctx context.Context, i int, name string) (bool, error) {
	classes, err := r.Classes().All(ctx)
	if err != nil {
		return false, err
	}
	if i < 0 || i >= len(classes) {
		return false, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, validate.NewError(errors.New("class name is required"),
			validate.FieldError{Field: "name", Error: "this field is required"})
	}
	classes[i].Name = name
	return true, r.Classes().Save(ctx, classes)
}

func (r *Repository) AddStudent(ctx context.Context, s model.Student) (model.Student, error) {
	return r.Students().Add(ctx, s)
}

func (r *Repository) UpdateStudent(ctx context.Context, id string, p model.StudentPatch) (bool, error) {
	return r.Students().Update(ctx, id, p.Apply)
}

// DeleteStudent removes the student only; attendance and class rosters that
// reference it are left as they are.
func (r *Repository) DeleteStudent(ctx context.Context, id string) (bool, error) {
	return r.Students().Delete(ctx, id)
}

func (r *Repository) AddScheduleSlot(ctx context.Context, s model.ScheduleSlot) (model.ScheduleSlot, error) {
	return r.Schedule().Add(ctx, s)
}

func (r *Repository) UpdateScheduleSlot(ctx context.Context, id string, p model.ScheduleSlotPatch) (bool, error) {
	return r.Schedule().Update(ctx, id, p.Apply)
}

func (r *Repository) DeleteScheduleSlot(ctx context.Context, id string) (bool, error) {
	return r.Schedule().Delete(ctx, id)
}

func (r *Repository) UpdateTeacher(ctx context.Context, id string, p model.TeacherPatch) (bool, error) {
	return r.Teachers().Update(ctx, id, p.Apply)
}

// SendMessage stores an unread message.
func (r *Repository) SendMessage(ctx context.Context, m model.Message) (model.Message, error) {
	m.FromEmail = validate.CleanString(m.FromEmail, true)
	m.ToEmail = validate.CleanString(m.ToEmail, true)
	m.Read = false
	return r.Messages().Add(ctx, m)
}

func (r *Repository) MarkMessageRead(ctx context.Context, id string) (bool, error) {
	read := true
	return r.Messages().Update(ctx, id, model.MessagePatch{Read: &read}.Apply)
}

// Inbox returns messages addressed to email, newest first.
func (r *Repository) Inbox(ctx context.Context, email string) ([]model.Message, error) {
	msgs, err := r.Messages().Filter(ctx, func(m model.Message) bool {
		return model.SameEmail(m.ToEmail, email)
	})
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

// RequestLeave stores a pending leave request.
func (r *Repository) RequestLeave(ctx context.Context, l model.LeaveRequest) (model.LeaveRequest, error) {
	l.TeacherEmail = validate.CleanString(l.TeacherEmail, true)
	l.Status = model.LeavePending
	l.HRNote = ""
	l.DecidedAt = nil
	return r.LeaveRequests().Add(ctx, l)
}

// DecideLeave records an HR decision on a request.
func (r *Repository) DecideLeave(ctx context.Context, id string, d model.LeaveDecision) (bool, error) {
	if err := validate.Struct(d); err != nil {
		return false, err
	}
	at := r.now()
	return r.LeaveRequests().Update(ctx, id, func(l *model.LeaveRequest) { d.Apply(l, at) })
}

func (r *Repository) Announce(ctx context.Context, a model.Announcement) (model.Announcement, error) {
	return r.Announcements().Add(ctx, a)
}

func (r *Repository) RecordPayment(ctx context.Context, p model.Payment) (model.Payment, error) {
	p.TeacherEmail = validate.CleanString(p.TeacherEmail, true)
	return r.Payments().Add(ctx, p)
}

func (r *Repository) RecordEvaluation(ctx context.Context, e model.PerformanceEvaluation) (model.PerformanceEvaluation, error) {
	e.TeacherEmail = validate.CleanString(e.TeacherEmail, true)
	return r.Performance().Add(ctx, e)
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
