package auth

import (
	"context"
	"time"

	"taller/internal/core/id"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	// GetByEmail matches the normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update stores login bookkeeping; it is not versioned.
	Update(ctx context.Context, user *User) error
	Exists(ctx context.Context, email string) (bool, error)

	LoadRoles(ctx context.Context, userID id.ID) ([]string, error)
	// LoadPermissions flattens the permissions of the user's roles.
	LoadPermissions(ctx context.Context, userID id.ID) ([]string, error)
	AssignRole(ctx context.Context, userID id.ID, roleCode string) error
}

type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
