// Package session keeps track of who is signed in. A session is a copy of
// the account record stored under a well-known key; it lives until logout or
// until the next login overwrites it.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"schoolportal/internal/auth"
	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/repo"
)

// Portals a session can be opened through.
const (
	PortalSite    = "site"
	PortalTeacher = "teacher"
)

// Redirect targets.
const (
	TargetLogin        = "login"
	TargetUnauthorized = "unauthorized"
)

// ErrUnknownRole is returned by Home for roles without a landing page.
var ErrUnknownRole = errors.New("unknown role")

// Slot names where accounts are looked up and where the session is kept.
type Slot struct {
	Portal      string
	AccountsKey string
	SessionKey  string
	// OrgKey, when set, receives the signed-in account's organization.
	OrgKey string
	// Org is used for OrgKey when the account carries none.
	Org string
}

// SiteSlot is the site-wide sign-in.
func SiteSlot() Slot {
	return Slot{
		Portal:      PortalSite,
		AccountsKey: repo.OrganizationsUsersKey,
		SessionKey:  repo.ActiveUserKey,
		OrgKey:      repo.ActiveOrgKey,
	}
}

// TeacherSlot is the teacher sign-in of one organization.
func TeacherSlot(org string) Slot {
	return Slot{
		Portal:      PortalTeacher,
		AccountsKey: repo.Key(org, repo.TeacherAccounts),
		SessionKey:  repo.TeacherActiveUserKey,
		OrgKey:      repo.ActiveOrgKey,
		Org:         org,
	}
}

// SlotFor returns the slot of a portal.
func SlotFor(portal, org string) (Slot, bool) {
	switch portal {
	case PortalSite:
		return SiteSlot(), true
	case PortalTeacher:
		if strings.TrimSpace(org) == "" {
			return Slot{}, false
		}
		return TeacherSlot(org), true
	}
	return Slot{}, false
}

// ForToken keeps the session under a key of its own so that many users can
// be signed in against one store. The active organization is not recorded.
func (s Slot) ForToken(id string) Slot {
	s.SessionKey = s.SessionKey + ":" + id
	s.OrgKey = ""
	return s
}

// RedirectError tells the caller to leave the current page.
type RedirectError struct {
	Target string
	Reason string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s: %s", e.Target, e.Reason)
}

// Manager opens, checks and closes the session of one slot.
type Manager struct {
	store    kv.Store
	slot     Slot
	registry *auth.Registry
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistries takes the slot's account registry from rs instead of
// building a private one.
func WithRegistries(rs *auth.Registries) Option {
	return func(m *Manager) { m.registry = rs.For(m.slot.AccountsKey) }
}

// NewManager returns a manager for slot.
func NewManager(store kv.Store, slot Slot, opts ...Option) *Manager {
	m := &Manager{store: store, slot: slot}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = auth.NewRegistry(store, slot.AccountsKey)
	}
	return m
}

func (m *Manager) Slot() Slot { return m.slot }
func (m *Manager) Registry() *auth.Registry { return m.registry }

// Login checks the credentials and stores the account as the session.
// Failures are always auth.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, email, password string) (model.Session, error) {
	acc, err := m.registry.Authenticate(ctx, email, password)
	if err != nil {
		return model.Session{}, err
	}
	sess := model.Session{Account: acc}
	if err := kv.SetJSON(ctx, m.store, m.slot.SessionKey, sess); err != nil {
		return model.Session{}, errors.Wrap(err, "save session")
	}
	if m.slot.OrgKey != "" {
		org := acc.Org
		if org == "" {
			org = m.slot.Org
		}
		if err := m.store.Set(ctx, m.slot.OrgKey, strings.TrimSpace(org)); err != nil {
			return model.Session{}, errors.Wrap(err, "save active org")
		}
	}
	return sess, nil
}

// Current returns the stored session, or nil when there is none. A corrupt
// session reads as none.
func (m *Manager) Current(ctx context.Context) (*model.Session, error) {
	var sess model.Session
	ok, err := kv.GetJSON(ctx, m.store, m.slot.SessionKey, &sess)
	if errors.Is(err, kv.ErrUnexpectedShape) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if !ok || sess.Email == "" {
		return nil, nil
	}
	return &sess, nil
}

// Require returns the session when one exists and its role is among roles.
// With no roles any session passes. Otherwise it returns a *RedirectError
// to the login page or to the unauthorized page.
func (m *Manager) Require(ctx context.Context, roles ...model.Role) (model.Session, error) {
	sess, err := m.Current(ctx)
	if err != nil {
		return model.Session{}, err
	}
	if sess == nil {
		return model.Session{}, &RedirectError{Target: TargetLogin, Reason: "not signed in"}
	}
	if len(roles) == 0 {
		return *sess, nil
	}
	for _, r := range roles {
		if sess.Role == r {
			return *sess, nil
		}
	}
	return model.Session{}, &RedirectError{Target: TargetUnauthorized, Reason: fmt.Sprintf("role %q not allowed", sess.Role)}
}

// Logout removes the session whether or not one exists.
func (m *Manager) Logout(ctx context.Context) error {
	return errors.Wrap(m.store.Delete(ctx, m.slot.SessionKey), "clear session")
}

// Home returns the landing page of role.
func Home(role model.Role) (string, error) {
	switch role {
	case model.RoleHR:
		return "hr-dashboard", nil
	case model.RoleTeacher:
		return "teacher-dashboard", nil
	case model.RoleEmployee:
		return "employee-portal", nil
	}
	return "", ErrUnknownRole
}
