package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"xydo.org/internal/audit"
	"xydo.org/internal/auth"
	"xydo.org/internal/session"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
	Team     string    `json:"team,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token and the user profile.
type AuthResponse = Envelope[session.User]

// Register creates an account. When the response carries a token the session
// is stored, so the caller is signed in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	resp, err := call[session.User](ctx, c, http.MethodPost, "/auth/register", req)
	if err != nil {
		return nil, err
	}
	if err := c.persist(ctx, resp); err != nil {
		return resp, err
	}
	_ = audit.LogEvent(audit.WithUserID(ctx, resp.Data.Identifier()), audit.EventRegister, map[string]any{
		"email":     req.Email,
		"role":      string(req.Role),
		"signed_in": resp.Token != "",
	})
	return resp, nil
}

// Login exchanges credentials for a token and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := call[session.User](ctx, c, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if err := c.persist(ctx, resp); err != nil {
		return resp, err
	}
	_ = audit.LogEvent(audit.WithUserID(ctx, resp.Data.Identifier()), audit.EventLogin, map[string]any{
		"email": email,
		"role":  string(resp.Data.Role),
	})
	return resp, nil
}

// Logout notifies the server and then clears the session. The session is
// cleared even when the call fails; the call error is returned.
func (c *Client) Logout(ctx context.Context) error {
	var userID string
	if u, ok := c.session.GetUser(ctx); ok {
		userID = u.Identifier()
	}
	_, callErr := c.Request(ctx, "/auth/logout", RequestOptions{})
	clearErr := c.session.Clear(ctx)
	_ = audit.LogEvent(audit.WithUserID(ctx, userID), audit.EventLogout, map[string]any{
		"server_ack": callErr == nil,
	})
	if clearErr != nil {
		clearErr = fmt.Errorf("clear session: %w", clearErr)
	}
	return errors.Join(callErr, clearErr)
}

// Me fetches the current profile and refreshes the stored copy.
func (c *Client) Me(ctx context.Context) (*Envelope[session.User], error) {
	raw, status, err := c.send(ctx, "/auth/me", RequestOptions{})
	if err != nil {
		return nil, err
	}
	resp, err := decodeEnvelope[session.User](raw, status)
	if err != nil {
		return nil, err
	}
	if hasData(raw) {
		if err := c.session.SetUser(ctx, &resp.Data); err != nil {
			return resp, fmt.Errorf("store user: %w", err)
		}
		_ = audit.LogEvent(audit.WithUserID(ctx, resp.Data.Identifier()), audit.EventRefresh, nil)
	}
	return resp, nil
}

func (c *Client) persist(ctx context.Context, resp *AuthResponse) error {
	if resp.Token == "" {
		return nil
	}
	if err := c.session.Set(ctx, resp.Token, &resp.Data); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
