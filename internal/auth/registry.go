package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/validate"
)

var (
	// ErrDuplicateEmail is returned when an account already uses the email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is the only error a failed sign-in reports, whatever
	// the cause.
	ErrInvalidCredentials = errors.New("invalid login credentials")
)

// Registration is the sign-up form.
type Registration struct {
	Org      string     `json:"org" validate:"notblank"`
	Name     string     `json:"name" validate:"notblank"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"notblank"`
	Role     model.Role `json:"role" validate:"required,oneof=hr teacher employee"`
}

func (r *Registration) clean() {
	r.Org = validate.CleanString(r.Org)
	r.Name = validate.CleanString(r.Name)
	r.Email = validate.CleanString(r.Email, true)
	r.Password = strings.TrimSpace(r.Password)
	r.Role = model.Role(validate.CleanString(string(r.Role), true))
}

// Registry keeps an account list under a single key. The site-wide list
// lives under "organizations_users"; each organization's teacher sign-ins
// live under its own "teacher_accounts" key.
type Registry struct {
	store kv.Store
	key   string
	now   func() time.Time

	// mu serialises Register among callers holding this Registry. Use
	// Registries to share one per key.
	mu sync.Mutex
}

// Registries hands out one Registry per account list key, so every
// registration against the same list in this process takes the same lock.
type Registries struct {
	store kv.Store

	mu    sync.Mutex
	byKey map[string]*Registry
}

func NewRegistries(store kv.Store) *Registries {
	return &Registries{store: store, byKey: make(map[string]*Registry)}
}

// For returns the registry of key, creating it on first use.
func (rs *Registries) For(key string) *Registry {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	reg, ok := rs.byKey[key]
	if !ok {
		reg = NewRegistry(rs.store, key)
		rs.byKey[key] = reg
	}
	return reg
}

// NewRegistry returns a registry over the account list stored at key.
func NewRegistry(store kv.Store, key string) *Registry {
	return &Registry{store: store, key: key, now: func() time.Time { return time.Now().UTC() }}
}

// Key is the storage key of the account list.
func (r *Registry) Key() string { return r.key }

// Accounts returns every stored account. A missing or corrupt list is empty.
func (r *Registry) Accounts(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	ok, err := kv.GetJSON(ctx, r.store, r.key, &accounts)
	if err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}
	if !ok || accounts == nil {
		return []model.Account{}, nil
	}
	return accounts, nil
}

// Register stores a new account holding only the digest of the password.
// The email must not be in use by any account in the list, whatever its
// organization.
func (r *Registry) Register(ctx context.Context, reg Registration) (model.Account, error) {
	reg.clean()
	if err := validate.Struct(reg); err != nil {
		return model.Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.Accounts(ctx)
	if err != nil {
		return model.Account{}, err
	}
	for _, a := range accounts {
		if model.SameEmail(a.Email, reg.Email) {
			return model.Account{}, ErrDuplicateEmail
		}
	}

	acc := model.Account{
		Org:            reg.Org,
		Name:           reg.Name,
		Email:          reg.Email,
		PasswordDigest: Hash(reg.Password),
		Role:           reg.Role,
		CreatedAt:      model.At(r.now()),
	}
	if err := kv.SetJSON(ctx, r.store, r.key, append(accounts, acc)); err != nil {
		return model.Account{}, errors.Wrap(err, "save accounts")
	}
	return acc, nil
}

// Authenticate returns the account matching email and password. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (r *Registry) Authenticate(ctx context.Context, email, password string) (model.Account, error) {
	email = validate.CleanString(email, true)
	password = strings.TrimSpace(password)
	accounts, err := r.Accounts(ctx)
	if err != nil {
		return model.Account{}, err
	}
	for _, a := range accounts {
		if a.Email == email && Verify(password, a.PasswordDigest) {
			loginAttempts.WithLabelValues("ok").Inc()
			return a, nil
		}
	}
	loginAttempts.WithLabelValues("rejected").Inc()
	return model.Account{}, ErrInvalidCredentials
}
