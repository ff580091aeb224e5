// Package auth authenticates workshop users and issues access tokens.
package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
)

// Permission codes checked by the HTTP layer.
const (
	PermOrdersRead      = "workshop.orders.read"
	PermOrdersWrite     = "workshop.orders.write"
	PermSalesGenerate   = "workshop.sales.generate"
	PermCommissionRead  = "workshop.commission.read"
	PermCommissionWrite = "workshop.commission.settle"
	PermCatalogWrite    = "catalog.write"
	PermReportsRead     = "reports.read"
)

// Built-in roles seeded into every tenant.
const (
	RoleAdmin      = "admin"
	RoleReception  = "recepcion"
	RoleTechnician = "tecnico"
)

// RolePermissions is the default grant set per built-in role. Admin bypasses
// permission checks.
var RolePermissions = map[string][]string{
	RoleReception: {
		PermOrdersRead, PermOrdersWrite, PermSalesGenerate, PermCatalogWrite, PermReportsRead,
	},
	RoleTechnician: {
		PermOrdersRead, PermOrdersWrite,
	},
}

type User struct {
	ID                  id.ID      `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FirstName           string     `db:"first_name" json:"firstName,omitempty"`
	LastName            string     `db:"last_name" json:"lastName,omitempty"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	IsAdmin             bool       `db:"is_admin" json:"isAdmin"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
	Version             int        `db:"version" json:"version"`

	Roles       []string `db:"-" json:"roles,omitempty"`
	Permissions []string `db:"-" json:"permissions,omitempty"`
}

func NewUser(email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return apperror.NewValidation("email is invalid").WithDetail("field", "email")
	}
	return nil
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

func (u *User) CanLogin(now time.Time) error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin locks the account once maxAttempts is reached.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lock time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		until := now.Add(lock)
		u.LockedUntil = &until
	}
}

func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// RefreshToken is stored hashed; the raw value is only returned to the client.
type RefreshToken struct {
	ID            id.ID      `db:"id"`
	UserID        id.ID      `db:"user_id"`
	TokenHash     string     `db:"token_hash"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason *string    `db:"revoked_reason"`
	UserAgent     string     `db:"user_agent"`
	IPAddress     string     `db:"ip_address"`
}

func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

type Credentials struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// NewUserInput creates a user from the tenant CLI or seed fixtures.
type NewUserInput struct {
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	IsAdmin   bool     `yaml:"is_admin"`
	Roles     []string `yaml:"roles"`
}
