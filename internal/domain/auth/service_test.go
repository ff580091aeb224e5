package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/tenant"
	"taller/internal/core/tx"
)

type memUsers struct {
	mu    sync.Mutex
	users map[id.ID]*User
	roles map[id.ID][]string
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[id.ID]*User{}, roles: map[id.ID][]string{}}
}

func (r *memUsers) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	c := *u
	return &c, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *memUsers) Update(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *memUsers) Exists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *memUsers) LoadRoles(ctx context.Context, userID id.ID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[userID], nil
}

func (r *memUsers) LoadPermissions(ctx context.Context, userID id.ID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, role := range r.roles[userID] {
		out = append(out, RolePermissions[role]...)
	}
	return out, nil
}

func (r *memUsers) AssignRole(ctx context.Context, userID id.ID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[userID] = append(r.roles[userID], role)
	return nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func (r *memTokens) SaveRefreshToken(ctx context.Context, t *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.TokenHash] = t
	return nil
}

func (r *memTokens) GetRefreshToken(ctx context.Context, hash string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok {
		return nil, apperror.NewNotFound("refresh_token", "")
	}
	c := *t
	return &c, nil
}

func (r *memTokens) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, t := range r.tokens {
		if t.ID == tokenID {
			t.RevokedAt = &now
			t.RevokedReason = &reason
		}
	}
	return nil
}

func (r *memTokens) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			t.RevokedReason = &reason
		}
	}
	return nil
}

func (r *memTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	svc := NewService(newMemUsers(), &memTokens{tokens: map[string]*RefreshToken{}}, tx.Passthrough{},
		NewJWTService(DefaultJWTConfig("test-secret")), DefaultServiceConfig())
	ctx := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: "t-1", Slug: "demo"})

	_, err := svc.CreateUser(ctx, NewUserInput{
		Email:    " Recepcion@Taller.co ",
		Password: "secreto123",
		Roles:    []string{RoleReception},
	})
	require.NoError(t, err)
	return svc, ctx
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, ctx := newTestService(t)

	pair, user, err := svc.Login(ctx, Credentials{Email: "recepcion@taller.co", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotNil(t, user.LastLoginAt)

	uc, err := svc.JWT().ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "t-1", uc.TenantID)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.True(t, uc.HasPermission(PermSalesGenerate))
	assert.False(t, uc.HasPermission(PermCommissionWrite))
}

func TestLoginRejectsBadPasswordAndLocks(t *testing.T) {
	svc, ctx := newTestService(t)
	svc.config.MaxLoginAttempts = 2

	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, Credentials{Email: "recepcion@taller.co", Password: "wrong"})
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	}
	_, _, err := svc.Login(ctx, Credentials{Email: "recepcion@taller.co", Password: "secreto123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, _, err = svc.Login(ctx, Credentials{Email: "nobody@taller.co", Password: "secreto123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLoginRequiresTenant(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), Credentials{Email: "recepcion@taller.co", Password: "secreto123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, ctx := newTestService(t)
	pair, user, err := svc.Login(ctx, Credentials{Email: "recepcion@taller.co", Password: "secreto123"})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	require.NoError(t, svc.Logout(ctx, user.ID))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestCreateUserValidation(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.CreateUser(ctx, NewUserInput{Email: "a@b.co", Password: "short"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.CreateUser(ctx, NewUserInput{Email: "recepcion@taller.co", Password: "secreto123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	_, err = svc.CreateUser(ctx, NewUserInput{Email: "x@taller.co", Password: "secreto123", Roles: []string{"jefe"}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	me, err := svc.CreateUser(ctx, NewUserInput{Email: "admin@taller.co", Password: "secreto123", IsAdmin: true, Roles: []string{RoleAdmin}})
	require.NoError(t, err)
	got, err := svc.Me(ctx, me.ID)
	require.NoError(t, err)
	assert.True(t, got.HasRole(RoleAdmin))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	j := NewJWTService(DefaultJWTConfig("a"))
	u := NewUser("x@taller.co", "")
	raw, _, err := j.GenerateAccessToken(u, "t-1")
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("b")).ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService(DefaultJWTConfig("a"))
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = expired.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashIsBcrypt(t *testing.T) {
	svc, ctx := newTestService(t)
	u, err := svc.users.GetByEmail(ctx, "recepcion@taller.co")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secreto123")))
}
