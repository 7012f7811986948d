package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/notify"
	"schoolportal/internal/validate"
)

var clock = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func setup(t *testing.T, org string, opts ...Option) (*Repository, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	opts = append([]Option{WithIDs(sequence()), WithClock(func() time.Time { return clock })}, opts...)
	r, err := New(store, Scope{Org: org}, opts...)
	require.NoError(t, err)
	return r, store
}

func TestNew(t *testing.T) {
	for _, org := range []string{"", "   "} {
		_, err := New(kv.NewMemory(), Scope{Org: org})
		assert.ErrorIs(t, err, ErrNoActiveOrg)
	}
	r, err := New(kv.NewMemory(), Scope{Org: " Acme "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", r.Org())
	assert.Equal(t, "Acme_students", r.Key(Students))
}

func TestKeys(t *testing.T) {
	tests := []struct {
		key      string
		wantOrg  string
		wantName Name
		wantOK   bool
	}{
		{key: "Acme_students", wantOrg: "Acme", wantName: Students, wantOK: true},
		{key: "My_School_class_schedule", wantOrg: "My_School", wantName: ClassSchedule, wantOK: true},
		{key: "Acme_teacher_accounts", wantOrg: "Acme", wantName: TeacherAccounts, wantOK: true},
		{key: "active_user"},
		{key: "organizations_users"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			org, name, ok := SplitKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantOrg, org)
				assert.Equal(t, tt.wantName, name)
				assert.Equal(t, tt.key, Key(org, name))
			}
		})
	}
}

func TestCollection(t *testing.T) {
	ctx := context.Background()
	r, store := setup(t, "Acme")
	students := r.Students()

	all, err := students.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Student{}, all)

	t.Run("add assigns id and time", func(t *testing.T) {
		s, err := students.Add(ctx, model.Student{ID: "ignored", FirstName: "Esi", LastName: "Mensah"})
		require.NoError(t, err)
		assert.Equal(t, model.ID("id-1"), s.ID)
		assert.Equal(t, clock, s.CreatedAt.Time)

		got, ok, err := students.Find(ctx, "id-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, s, got)
	})

	t.Run("invalid record is not written", func(t *testing.T) {
		_, err := students.Add(ctx, model.Student{FirstName: "  "})
		var verr *validate.Error
		require.ErrorAs(t, err, &verr)
		all, err := students.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("update", func(t *testing.T) {
		class := "JHS 2"
		ok, err := r.UpdateStudent(ctx, "id-1", model.StudentPatch{Class: &class})
		require.NoError(t, err)
		assert.True(t, ok)
		got, _, err := students.Find(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "JHS 2", got.Class)
		assert.Equal(t, "Esi", got.FirstName)

		ok, err = r.UpdateStudent(ctx, "nope", model.StudentPatch{Class: &class})
		require.NoError(t, err)
		assert.False(t, ok)

		blank := ""
		_, err = r.UpdateStudent(ctx, "id-1", model.StudentPatch{FirstName: &blank})
		require.Error(t, err)
		got, _, err = students.Find(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "Esi", got.FirstName)
	})

	t.Run("delete missing leaves value untouched", func(t *testing.T) {
		before, _, err := store.Get(ctx, "Acme_students")
		require.NoError(t, err)
		ok, err := r.DeleteStudent(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
		after, _, err := store.Get(ctx, "Acme_students")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("delete", func(t *testing.T) {
		ok, err := r.DeleteStudent(ctx, "id-1")
		require.NoError(t, err)
		assert.True(t, ok)
		all, err := students.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("add all is atomic", func(t *testing.T) {
		_, err := students.AddAll(ctx, []model.Student{{FirstName: "A"}, {FirstName: ""}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record 2")
		all, err := students.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		added, err := students.AddAll(ctx, []model.Student{{FirstName: "A"}, {FirstName: "B"}})
		require.NoError(t, err)
		require.Len(t, added, 2)
		assert.NotEqual(t, added[0].ID, added[1].ID)
	})

	t.Run("corrupt value reads empty", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "Acme_classes", "{oops"))
		all, err := r.Classes().All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("wrong shape is not overwritten", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "Acme_classes", `{"name":"JHS1"}`))
		_, err := r.AddClass(ctx, model.Class{Name: "JHS2"})
		assert.ErrorIs(t, err, kv.ErrUnexpectedShape)
		raw, _, err := store.Get(ctx, "Acme_classes")
		require.NoError(t, err)
		assert.Equal(t, `{"name":"JHS1"}`, raw)
	})
}

func TestNumericIDs(t *testing.T) {
	ctx := context.Background()
	r, store := setup(t, "Acme")
	require.NoError(t, store.Set(ctx, "Acme_students",
		`[{"id":1700000000000,"firstName":"Esi","createdAt":1700000000000}]`))

	all, err := r.Students().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.ID("1700000000000"), all[0].ID)
	assert.Equal(t, int64(1700000000000), all[0].CreatedAt.UnixMilli())

	_, err = r.AddStudent(ctx, model.Student{FirstName: "Kofi"})
	require.NoError(t, err)
	all, err = r.Students().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Esi", all[0].FirstName)
	assert.Equal(t, "Kofi", all[1].FirstName)

	raw, _, err := store.Get(ctx, "Acme_students")
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":1700000000000`)

	class := "JHS 1"
	ok, err := r.UpdateStudent(ctx, "1700000000000", model.StudentPatch{Class: &class})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrganizationsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	acme, err := New(store, Scope{Org: "Acme"})
	require.NoError(t, err)
	globex, err := New(store, Scope{Org: "Globex"})
	require.NoError(t, err)

	_, err = acme.AddStudent(ctx, model.Student{FirstName: "Esi"})
	require.NoError(t, err)
	all, err := globex.Students().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClasses(t *testing.T) {
	ctx := context.Background()
	r, _ := setup(t, "Acme")

	c, err := r.AddClass(ctx, model.Class{Name: "  JHS 1 "})
	require.NoError(t, err)
	assert.Equal(t, "JHS 1", c.Name)
	assert.Equal(t, []model.ID{}, c.Students)

	ok, err := r.RenameClassAt(ctx, 0, "JHS 1A")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.RenameClassAt(ctx, 3, "x")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = r.RenameClassAt(ctx, 0, "  ")
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)

	got, _, err := r.Classes().Find(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "JHS 1A", got.Name)
}

func TestMessagesAndLeave(t *testing.T) {
	ctx := context.Background()
	r, _ := setup(t, "Acme")

	_, err := r.SendMessage(ctx, model.Message{FromEmail: "HR@acme.io", ToEmail: "Kofi@acme.io", Body: "first", Read: true})
	require.NoError(t, err)
	second, err := r.SendMessage(ctx, model.Message{FromEmail: "hr@acme.io", ToEmail: "kofi@acme.io", Body: "second"})
	require.NoError(t, err)

	inbox, err := r.Inbox(ctx, "KOFI@acme.io")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "second", inbox[0].Body)
	assert.False(t, inbox[1].Read)
	assert.Equal(t, "kofi@acme.io", inbox[1].ToEmail)

	ok, err := r.MarkMessageRead(ctx, second.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)
	m, _, err := r.Messages().Find(ctx, second.ID.String())
	require.NoError(t, err)
	assert.True(t, m.Read)

	l, err := r.RequestLeave(ctx, model.LeaveRequest{TeacherEmail: "kofi@acme.io", FromDate: "2024-04-01", ToDate: "2024-04-03", Status: model.LeaveApproved})
	require.NoError(t, err)
	assert.Equal(t, model.LeavePending, l.Status)
	assert.Nil(t, l.DecidedAt)

	_, err = r.RequestLeave(ctx, model.LeaveRequest{TeacherEmail: "kofi@acme.io", FromDate: "April 1st", ToDate: "2024-04-03"})
	require.Error(t, err)

	_, err = r.DecideLeave(ctx, l.ID.String(), model.LeaveDecision{Status: "maybe"})
	require.Error(t, err)

	ok, err = r.DecideLeave(ctx, l.ID.String(), model.LeaveDecision{Status: model.LeaveApproved, HRNote: "enjoy"})
	require.NoError(t, err)
	assert.True(t, ok)
	got, _, err := r.LeaveRequests().Find(ctx, l.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.LeaveApproved, got.Status)
	assert.Equal(t, "enjoy", got.HRNote)
	require.NotNil(t, got.DecidedAt)
	assert.Equal(t, clock, got.DecidedAt.Time)
}

func TestEnsureTeacherCollections(t *testing.T) {
	ctx := context.Background()
	r, store := setup(t, "Acme")
	_, err := r.AddStudent(ctx, model.Student{FirstName: "Esi"})
	require.NoError(t, err)

	require.NoError(t, r.EnsureTeacherCollections(ctx))

	v, ok, err := store.Get(ctx, "Acme_classes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
	students, err := r.Students().All(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	require.NoError(t, store.Set(ctx, "Acme_leave_requests", "{oops"))
	require.NoError(t, store.Set(ctx, "Acme_teacher_messages", `{"kept":true}`))
	require.NoError(t, r.EnsureTeacherCollections(ctx))
	v, _, err = store.Get(ctx, "Acme_leave_requests")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
	v, _, err = store.Get(ctx, "Acme_teacher_messages")
	require.NoError(t, err)
	assert.Equal(t, `{"kept":true}`, v)
}

func TestScopeFromStore(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	_, err := ScopeFromStore(ctx, store, ActiveUserKey)
	assert.ErrorIs(t, err, ErrNoActiveOrg)

	require.NoError(t, store.Set(ctx, "activeOrg", " Legacy "))
	scope, err := ScopeFromStore(ctx, store, ActiveUserKey)
	require.NoError(t, err)
	assert.Equal(t, "Legacy", scope.Org)
	assert.Nil(t, scope.Session)
	assert.Empty(t, scope.Email())

	require.NoError(t, SetActiveOrg(ctx, store, "Acme"))
	require.NoError(t, kv.SetJSON(ctx, store, ActiveUserKey, model.Session{Account: model.Account{Email: "ama@acme.io"}}))
	scope, err = ScopeFromStore(ctx, store, ActiveUserKey)
	require.NoError(t, err)
	assert.Equal(t, "Acme", scope.Org)
	assert.Equal(t, "ama@acme.io", scope.Email())

	require.NoError(t, store.Set(ctx, ActiveUserKey, "garbage"))
	scope, err = ScopeFromStore(ctx, store, ActiveUserKey)
	require.NoError(t, err)
	assert.Nil(t, scope.Session)
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewInMemory(16)
	store := notify.Wrap(kv.NewMemory(), bus, "test")
	acme, err := New(store, Scope{Org: "Acme"}, WithBus(bus))
	require.NoError(t, err)
	globex, err := New(store, Scope{Org: "Globex"}, WithBus(bus))
	require.NoError(t, err)

	got := make(chan Name, 8)
	stop, err := acme.OnChange(ctx, func(n Name) { got <- n })
	require.NoError(t, err)
	defer stop()

	_, err = globex.AddStudent(ctx, model.Student{FirstName: "Other"})
	require.NoError(t, err)
	require.NoError(t, SetActiveOrg(ctx, store, "Acme"))
	_, err = acme.AddClass(ctx, model.Class{Name: "JHS 1"})
	require.NoError(t, err)

	select {
	case n := <-got:
		assert.Equal(t, Classes, n)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}
	assert.Empty(t, got)

	tab, err := New(store, Scope{Org: "Acme"}, WithBus(bus), WithOrigin("tab-1"))
	require.NoError(t, err)
	own := make(chan Name, 8)
	stopTab, err := tab.OnChange(ctx, func(n Name) { own <- n })
	require.NoError(t, err)
	defer stopTab()

	_, err = tab.AddStudent(notify.WithOrigin(ctx, "tab-1"), model.Student{FirstName: "Mine"})
	require.NoError(t, err)
	_, err = acme.AddScheduleSlot(ctx, model.ScheduleSlot{Day: 1, Time: "08:00", ClassName: "JHS 1"})
	require.NoError(t, err)
	select {
	case n := <-own:
		assert.Equal(t, ClassSchedule, n, "own writes are skipped")
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	noBus, _ := New(kv.NewMemory(), Scope{Org: "Acme"})
	_, err = noBus.OnChange(ctx, func(Name) {})
	assert.ErrorIs(t, err, ErrNoBus)
}
