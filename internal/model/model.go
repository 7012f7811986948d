// Package model defines the records kept in portal collections. JSON field
// names follow the portal's storage layout: camelCase, with the password
// digest under "pass".
package model

import "strings"

// Role tags an account with the dashboard it may enter.
type Role string

const (
	RoleHR       Role = "hr"
	RoleTeacher  Role = "teacher"
	RoleEmployee Role = "employee"
)

// Roles lists every assignable role.
var Roles = []Role{RoleHR, RoleTeacher, RoleEmployee}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Account is a registered user. Email is stored lowercased and is the
// natural identity key.
type Account struct {
	Org            string    `json:"org"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"pass"`
	Role           Role      `json:"role"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// Session is the persisted copy of the signed-in account.
type Session struct {
	Account
}

// Profile is an account without its digest, safe to hand to clients.
type Profile struct {
	Org       string    `json:"org"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Profile strips the digest.
func (a Account) Profile() Profile {
	return Profile{Org: a.Org, Name: a.Name, Email: a.Email, Role: a.Role, CreatedAt: a.CreatedAt}
}

// SameEmail compares two addresses the way accounts are keyed.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
