package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
	"taller/pkg/logger"
)

type ServiceConfig struct {
	MaxLoginAttempts   int
	LockDuration       time.Duration
	PasswordMinLength  int
	RefreshTokenExpiry time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:   5,
		LockDuration:       15 * time.Minute,
		PasswordMinLength:  8,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

type Service struct {
	users     UserRepository
	tokens    TokenRepository
	txManager tx.Manager
	jwt       *JWTService
	config    ServiceConfig
	now       func() time.Time
}

func NewService(users UserRepository, tokens TokenRepository, txManager tx.Manager, jwtService *JWTService, config ServiceConfig) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		txManager: txManager,
		jwt:       jwtService,
		config:    config,
		now:       time.Now,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	txm, err := tenant.GetTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm, nil
}

func requireTenantID(ctx context.Context) (string, error) {
	tenantID := tenant.GetTenantID(ctx)
	if tenantID == "" {
		return "", apperror.NewValidation("tenant is required").
			WithDetail("header", "X-Tenant-ID")
	}
	return tenantID, nil
}

// CreateUser is used by the tenant CLI and seed fixtures. There is no public
// sign-up endpoint.
func (s *Service) CreateUser(ctx context.Context, in NewUserInput) (*User, error) {
	if len(in.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}
	for _, r := range in.Roles {
		if _, ok := RolePermissions[r]; !ok && r != RoleAdmin {
			return nil, apperror.NewValidation("unknown role").WithDetail("role", r)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := NewUser(in.Email, string(hash))
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.IsAdmin = in.IsAdmin
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, err
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.users.Exists(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("user", "email", user.Email)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		for _, r := range in.Roles {
			if err := s.users.AssignRole(ctx, user.ID, r); err != nil {
				return fmt.Errorf("assign role %s: %w", r, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.Roles = in.Roles

	logger.Info(ctx, "user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login checks the password and returns a fresh token pair. Failed attempts
// count toward a temporary lock.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *User, error) {
	if _, err := requireTenantID(ctx); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(creds.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	now := s.now()
	if err := user.CanLogin(now); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(now, s.config.MaxLoginAttempts, s.config.LockDuration)
		if uerr := s.users.Update(ctx, user); uerr != nil {
			logger.Warn(ctx, "failed to record login attempt", "user_id", user.ID, "error", uerr)
		}
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := s.loadGrants(ctx, user); err != nil {
		return nil, nil, err
	}
	tokens, err := s.issueTokens(ctx, user, creds.UserAgent, creds.IPAddress)
	if err != nil {
		return nil, nil, err
	}

	user.RecordSuccessfulLogin(now)
	if err := s.users.Update(ctx, user); err != nil {
		logger.Warn(ctx, "failed to record login", "user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID)
	return tokens, user, nil
}

// Refresh rotates a refresh token. The presented token is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.tokens.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !token.IsValid(s.now()) {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("user not found")
	}
	if err := user.CanLogin(s.now()); err != nil {
		return nil, err
	}
	if err := s.loadGrants(ctx, user); err != nil {
		return nil, err
	}

	if err := s.tokens.RevokeRefreshToken(ctx, token.ID, "refreshed"); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.issueTokens(ctx, user, token.UserAgent, token.IPAddress)
}

func (s *Service) Logout(ctx context.Context, userID id.ID) error {
	if err := s.tokens.RevokeAllUserTokens(ctx, userID, "logout"); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// Me returns the user with roles and permissions loaded.
func (s *Service) Me(ctx context.Context, userID id.ID) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.loadGrants(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// JWT is used by the auth middleware to validate access tokens.
func (s *Service) JWT() *JWTService {
	return s.jwt
}

func (s *Service) loadGrants(ctx context.Context, user *User) error {
	roles, err := s.users.LoadRoles(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	perms, err := s.users.LoadPermissions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	user.Roles = roles
	user.Permissions = perms
	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *User, userAgent, ip string) (*TokenPair, error) {
	tenantID, err := requireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	access, expiresAt, err := s.jwt.GenerateAccessToken(user, tenantID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	raw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	rt := &RefreshToken{
		ID:        id.New(),
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.tokens.SaveRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
