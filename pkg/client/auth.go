package client

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token pair. The receiver keeps its
// token; use Authenticated with res.Tokens.AccessToken.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return call[LoginResult](ctx, c, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Refresh rotates the refresh token; the old one stops working.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	return call[Tokens](ctx, c, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	return get[User](ctx, c, "/auth/me", nil)
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) (*User, error) {
	return call[User](ctx, c, http.MethodPost, "/auth/users", u)
}
