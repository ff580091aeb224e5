// Package auth_repo stores tenant users, their role grants and refresh tokens.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain/auth"
	"taller/internal/infrastructure/storage/postgres"
)

var userColumns = postgres.ExtractDBColumns[auth.User]()

type UserRepo struct {
	builder squirrel.StatementBuilderType
}

var _ auth.UserRepository = (*UserRepo)(nil)

func NewUserRepo() *UserRepo {
	return &UserRepo{builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	sql, args, err := r.builder.Insert("users").SetMap(postgres.StructToMap(user)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": userID}, userID.String())
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": auth.NormalizeEmail(email)}, email)
}

func (r *UserRepo) getOne(ctx context.Context, where squirrel.Eq, label string) (*auth.User, error) {
	sql, args, err := r.builder.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var user auth.User
	if err := pgxscan.Get(ctx, postgres.QuerierFromContext(ctx), &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", label)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	const sql = `
		UPDATE users SET
			first_name = $2, last_name = $3, is_active = $4, is_admin = $5,
			last_login_at = $6, failed_login_attempts = $7, locked_until = $8,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql,
		user.ID, user.FirstName, user.LastName, user.IsActive, user.IsAdmin,
		user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID.String())
	}
	return nil
}

func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := postgres.QuerierFromContext(ctx).
		QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, auth.NormalizeEmail(email)).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepo) LoadRoles(ctx context.Context, userID id.ID) ([]string, error) {
	const sql = `SELECT role_code FROM user_roles WHERE user_id = $1 ORDER BY role_code`
	roles := []string{}
	if err := pgxscan.Select(ctx, postgres.QuerierFromContext(ctx), &roles, sql, userID); err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	return roles, nil
}

func (r *UserRepo) LoadPermissions(ctx context.Context, userID id.ID) ([]string, error) {
	const sql = `
		SELECT DISTINCT rp.permission_code
		FROM role_permissions rp
		JOIN user_roles ur ON ur.role_code = rp.role_code
		WHERE ur.user_id = $1
		ORDER BY rp.permission_code`
	perms := []string{}
	if err := pgxscan.Select(ctx, postgres.QuerierFromContext(ctx), &perms, sql, userID); err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	return perms, nil
}

// AssignRole is idempotent. An unknown role code fails the roles foreign key.
func (r *UserRepo) AssignRole(ctx context.Context, userID id.ID, roleCode string) error {
	const sql = `
		INSERT INTO user_roles (user_id, role_code) VALUES ($1, $2)
		ON CONFLICT (user_id, role_code) DO NOTHING`
	if _, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql, userID, roleCode); err != nil {
		return fmt.Errorf("assign role %s: %w", roleCode, err)
	}
	return nil
}
