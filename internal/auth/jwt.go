package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"schoolportal/internal/model"
)

// Token kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	AccessExp    time.Time `json:"accessExp"`
	RefreshExp   time.Time `json:"refreshExp"`
}

// Identity is what a token asserts about its bearer. Portal names the
// session slot the bearer signed in through.
type Identity struct {
	Email     string
	Role      model.Role
	Org       string
	Portal    string
	SessionID string
}

// Claims represents JWT payload.
type Claims struct {
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Org       string     `json:"org"`
	Portal    string     `json:"portal"`
	SessionID string     `json:"sid"`
	Kind      string     `json:"kind"`
	jwt.RegisteredClaims
}

// Identity returns the asserted identity.
func (c Claims) Identity() Identity {
	return Identity{Email: c.Email, Role: c.Role, Org: c.Org, Portal: c.Portal, SessionID: c.SessionID}
}

// Issue issues signed access and refresh tokens.
func Issue(id Identity, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	accessToken, err := sign(id, KindAccess, issuer, key, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := sign(id, KindRefresh, issuer, key, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func sign(id Identity, kind, issuer, key string, now, exp time.Time) (string, error) {
	claims := Claims{
		Email:     id.Email,
		Role:      id.Role,
		Org:       id.Org,
		Portal:    id.Portal,
		SessionID: id.SessionID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
