// Package identity administers the user store: users, roles, their claims,
// role membership and external logins.
//
// User mutations publish AccountCreated and AccountUpdated integration events.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateUserName = errors.New("user name already exists")
	ErrDuplicateRoleName = errors.New("role name already exists")
)

type User struct {
	ID                   uuid.UUID
	UserName             string
	Email                string
	EmailConfirmed       bool
	PhoneNumber          string
	PhoneNumberConfirmed bool
	LockoutEnabled       bool
	LockoutEnd           *time.Time
	AccessFailedCount    int
	TwoFactorEnabled     bool
	PasswordHash         string
	SecurityStamp        string
}

type Role struct {
	ID   uuid.UUID
	Name string
}

type UserClaim struct {
	ID     int
	UserID uuid.UUID
	Type   string
	Value  string
}

type RoleClaim struct {
	ID     int
	RoleID uuid.UUID
	Type   string
	Value  string
}

// UserLogin links a user to an external login provider
type UserLogin struct {
	LoginProvider       string
	ProviderKey         string
	ProviderDisplayName string
	UserID              uuid.UUID
}

// Normalize is the case-insensitive form used for uniqueness and lookups
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
