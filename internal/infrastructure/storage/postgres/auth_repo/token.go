package auth_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain/auth"
	"taller/internal/infrastructure/storage/postgres"
)

type TokenRepo struct{}

var _ auth.TokenRepository = (*TokenRepo)(nil)

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{}
}

func (r *TokenRepo) SaveRefreshToken(ctx context.Context, t *auth.RefreshToken) error {
	const sql = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.UserAgent, t.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	const sql = `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, revoked_reason, user_agent, ip_address
		FROM refresh_tokens WHERE token_hash = $1`
	var t auth.RefreshToken
	if err := pgxscan.Get(ctx, postgres.QuerierFromContext(ctx), &t, sql, tokenHash); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh_token", "")
		}
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	const sql = `UPDATE refresh_tokens SET revoked_at = NOW(), revoked_reason = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql, tokenID, reason); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	const sql = `UPDATE refresh_tokens SET revoked_at = NOW(), revoked_reason = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	if _, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql, userID, reason); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens expired before the cutoff and tokens revoked
// more than a week earlier.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const sql = `DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at < $1 - INTERVAL '7 days'`
	tag, err := postgres.QuerierFromContext(ctx).Exec(ctx, sql, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
