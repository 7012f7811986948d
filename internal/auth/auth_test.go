package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/kv"
	"schoolportal/internal/model"
	"schoolportal/internal/validate"
)

func TestHash(t *testing.T) {
	// sha256("secret")
	const want = "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	assert.Equal(t, want, Hash("secret"))
	assert.Equal(t, Hash("secret"), Hash("secret"))
	assert.True(t, Verify("secret", want))
	assert.False(t, Verify("Secret", want))
	assert.False(t, Verify("secret", ""))
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	reg := NewRegistry(store, "organizations_users")

	acc, err := reg.Register(ctx, Registration{Org: " Acme ", Name: "Jo", Email: " JO@x.com ", Password: " pw ", Role: "HR"})
	require.NoError(t, err)
	assert.Equal(t, model.Account{
		Org:            "Acme",
		Name:           "Jo",
		Email:          "jo@x.com",
		PasswordDigest: Hash("pw"),
		Role:           model.RoleHR,
		CreatedAt:      acc.CreatedAt,
	}, acc)

	raw, ok, err := store.Get(ctx, "organizations_users")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, `"pw"`)
	assert.Contains(t, raw, `"pass":"`+Hash("pw")+`"`)

	tests := []struct {
		name    string
		reg     Registration
		wantErr error
	}{
		{
			name:    "duplicate email in another org",
			reg:     Registration{Org: "Globex", Name: "J", Email: "jo@X.com", Password: "x", Role: "teacher"},
			wantErr: ErrDuplicateEmail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Register(ctx, tt.reg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	invalid := []Registration{
		{Name: "J", Email: "a@x.io", Password: "x", Role: "hr"},
		{Org: "Acme", Name: "J", Email: "not-an-email", Password: "x", Role: "hr"},
		{Org: "Acme", Name: "J", Email: "b@x.io", Password: "   ", Role: "hr"},
		{Org: "Acme", Name: "J", Email: "c@x.io", Password: "x", Role: "admin"},
	}
	for _, r := range invalid {
		_, err := reg.Register(ctx, r)
		var verr *validate.Error
		assert.ErrorAs(t, err, &verr, "%+v", r)
	}

	accounts, err := reg.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestRegistries(t *testing.T) {
	rs := NewRegistries(kv.NewMemory())
	site := rs.For("organizations_users")
	assert.Same(t, site, rs.For("organizations_users"))
	assert.NotSame(t, site, rs.For("Acme_teacher_accounts"))
	assert.Equal(t, "Acme_teacher_accounts", rs.For("Acme_teacher_accounts").Key())
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(kv.NewMemory(), "organizations_users")
	_, err := reg.Register(ctx, Registration{Org: "Acme", Name: "Jo", Email: "JO@x.com", Password: "pw", Role: "teacher"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "mixed case email", email: "Jo@X.com", password: "pw"},
		{name: "padded password", email: "jo@x.com", password: " pw "},
		{name: "wrong password", email: "jo@x.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "who@x.com", password: "pw", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := reg.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jo@x.com", acc.Email)
		})
	}
}

func TestCorruptAccountsReadEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "organizations_users", "{{"))
	reg := NewRegistry(store, "organizations_users")

	accounts, err := reg.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	_, err = reg.Authenticate(ctx, "a@x.io", "x")
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestNumericCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	raw := `[{"org":"Acme","name":"Jo","email":"jo@x.com","pass":"` + Hash("pw") + `","role":"hr","createdAt":1700000000000}]`
	require.NoError(t, store.Set(ctx, "organizations_users", raw))
	reg := NewRegistry(store, "organizations_users")

	acc, err := reg.Authenticate(ctx, "jo@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), acc.CreatedAt.UnixMilli())

	_, err = reg.Register(ctx, Registration{Org: "Acme", Name: "Kofi", Email: "kofi@x.com", Password: "pw", Role: "teacher"})
	require.NoError(t, err)
	accounts, err := reg.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestTokens(t *testing.T) {
	id := Identity{Email: "jo@x.com", Role: model.RoleTeacher, Org: "Acme", Portal: "teacher", SessionID: "sid-1"}
	pair, err := Issue(id, "portal", "key", time.Minute, time.Hour)
	require.NoError(t, err)
	assert.True(t, pair.RefreshExp.After(pair.AccessExp))

	claims, err := Parse(pair.AccessToken, "key", "portal")
	require.NoError(t, err)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.Equal(t, id, claims.Identity())

	refresh, err := Parse(pair.RefreshToken, "key", "portal")
	require.NoError(t, err)
	assert.Equal(t, KindRefresh, refresh.Kind)

	_, err = Parse(pair.AccessToken, "other-key", "portal")
	assert.Error(t, err)
	_, err = Parse(pair.AccessToken, "key", "someone-else")
	assert.Error(t, err)

	expired, err := Issue(id, "portal", "key", -time.Minute, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, "key", "portal")
	assert.Error(t, err)
}

func TestBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pair, err := Issue(Identity{Email: "jo@x.com", Role: model.RoleHR}, "portal", "key", time.Minute, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Bearer("key", "portal"), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Email)
	})

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
	}{
		{name: "header", header: "Bearer " + pair.AccessToken, wantCode: http.StatusOK},
		{name: "query", query: "?access_token=" + pair.AccessToken, wantCode: http.StatusOK},
		{name: "missing", wantCode: http.StatusUnauthorized},
		{name: "refresh token rejected", header: "Bearer " + pair.RefreshToken, wantCode: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "jo@x.com", rec.Body.String())
			}
		})
	}
}
