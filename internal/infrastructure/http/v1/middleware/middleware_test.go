package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	appctx "taller/internal/core/context"
	"taller/internal/core/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct {
	user *appctx.UserContext
	err  error
}

func (s stubValidator) ValidateToken(string) (*appctx.UserContext, error) {
	return s.user, s.err
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, string) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body.Code
}

func ok(c *gin.Context) { c.Status(http.StatusNoContent) }

func TestAuth(t *testing.T) {
	user := &appctx.UserContext{UserID: "u1", TenantID: "t1", Roles: []string{"recepcion"}}

	tests := []struct {
		name   string
		header string
		v      JWTValidator
		status int
		code   string
	}{
		{"no header", "", stubValidator{user: user}, http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"wrong scheme", "Basic abc", stubValidator{user: user}, http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"invalid token", "Bearer abc", stubValidator{err: errors.New("expired")}, http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"valid", "Bearer abc", stubValidator{user: user}, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/", Auth(tt.v), ok)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w, code := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestAuthRejectsTokenOfAnotherTenant(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), func(c *gin.Context) {
		c.Request = c.Request.WithContext(tenant.WithTenant(c.Request.Context(), &tenant.Tenant{ID: "t2"}))
	})
	r.GET("/", Auth(stubValidator{user: &appctx.UserContext{UserID: "u1", TenantID: "t1"}}), ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w, code := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.CodeForbidden, code)
}

func TestRequireRole(t *testing.T) {
	withUser := func(u *appctx.UserContext) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), u))
		}
	}

	cases := []struct {
		user   *appctx.UserContext
		status int
	}{
		{&appctx.UserContext{Roles: []string{"tecnico"}}, http.StatusForbidden},
		{&appctx.UserContext{Roles: []string{"admin"}}, http.StatusNoContent},
		{&appctx.UserContext{IsAdmin: true}, http.StatusNoContent},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(ErrorHandler(), withUser(tc.user))
		r.GET("/", RequireRole("admin"), ok)
		w, _ := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.status, w.Code, "%+v", tc.user)
	}
}

func TestTraceEchoesIDs(t *testing.T) {
	r := gin.New()
	r.Use(Trace())
	r.GET("/", func(c *gin.Context) {
		tc := appctx.GetTrace(c.Request.Context())
		require.NotNil(t, tc)
		c.String(http.StatusOK, tc.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderTraceID, "trace-7")
	w, _ := serve(r, req)

	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "trace-7", w.Header().Get(HeaderTraceID))

	w, _ = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestErrorHandlerRendersAppCodes(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperror.NewSaleAlreadyGenerated("wo", "sale"))
	})
	r.GET("/slow", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("load order: %w", context.DeadlineExceeded))
	})
	r.GET("/db", func(c *gin.Context) {
		_ = c.Error(&pgconn.PgError{Code: "40P01"})
	})
	r.GET("/dup", func(c *gin.Context) {
		_ = c.Error(&pgconn.PgError{Code: "23505", ConstraintName: "cat_vehicles_plate_key"})
	})

	w, code := serve(r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, code)

	w, code = serve(r, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeSaleExists, code)

	w, code = serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, apperror.CodeTimeout, code)

	w, code = serve(r, httptest.NewRequest(http.MethodGet, "/db", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeDatabase, code)

	w, code = serve(r, httptest.NewRequest(http.MethodGet, "/dup", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeConflict, code)
}

func limitedEngine(t *testing.T, cfg RateLimitConfig) *gin.Engine {
	t.Helper()
	limit, err := RateLimit(cfg)
	require.NoError(t, err)
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/", limit, ok)
	return r
}

func TestRateLimitMemoryStore(t *testing.T) {
	r := limitedEngine(t, RateLimitConfig{Rate: "2-M", Prefix: "test"})

	for i := 0; i < 2; i++ {
		w, _ := serve(r, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	w, code := serve(r, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperror.CodeRateLimited, code)
}

func TestRateLimitSharedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := RateLimitConfig{Rate: "3-M", Prefix: "shared", Redis: rdb}
	a := limitedEngine(t, cfg)
	b := limitedEngine(t, cfg)

	for _, r := range []*gin.Engine{a, b, a} {
		w, _ := serve(r, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	w, _ := serve(b, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "second instance sees the first one's hits")
}

func TestRateLimitRejectsBadFormat(t *testing.T) {
	_, err := RateLimit(RateLimitConfig{Rate: "lots"})
	assert.Error(t, err)
}
