package repo

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"schoolportal/internal/kv"
	"schoolportal/internal/model"
)

// ErrNoActiveOrg is returned when no organization has been selected.
var ErrNoActiveOrg = errors.New("no active organization")

// Scope carries the organization and the signed-in user a repository works
// for.
type Scope struct {
	Org     string
	Session *model.Session
}

// Email returns the signed-in user's email, or "" when anonymous.
func (s Scope) Email() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.Email
}

// ScopeFromStore reads the active organization and session the way a single
// local client keeps them. sessionKey selects which session slot to read; a
// missing or corrupt session leaves Session nil.
func ScopeFromStore(ctx context.Context, s kv.Store, sessionKey string) (Scope, error) {
	org, err := ActiveOrg(ctx, s)
	if err != nil {
		return Scope{}, err
	}
	if org == "" {
		return Scope{}, ErrNoActiveOrg
	}
	scope := Scope{Org: org}

	var sess model.Session
	ok, err := kv.GetJSON(ctx, s, sessionKey, &sess)
	if errors.Is(err, kv.ErrUnexpectedShape) {
		return scope, nil
	}
	if err != nil {
		return Scope{}, errors.Wrap(err, "load session")
	}
	if ok && sess.Email != "" {
		scope.Session = &sess
	}
	return scope, nil
}

// ActiveOrg returns the selected organization, trimmed, or "" when none is set.
func ActiveOrg(ctx context.Context, s kv.Store) (string, error) {
	for _, key := range []string{ActiveOrgKey, legacyActiveOrgKey} {
		v, _, err := s.Get(ctx, key)
		if err != nil {
			return "", errors.Wrap(err, "load active org")
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// SetActiveOrg stores org as the selected organization.
func SetActiveOrg(ctx context.Context, s kv.Store, org string) error {
	return errors.Wrap(s.Set(ctx, ActiveOrgKey, strings.TrimSpace(org)), "save active org")
}
