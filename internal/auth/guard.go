package auth

import (
	"context"

	"xydo.org/internal/nav"
)

// TokenSource exposes the stored bearer token.
type TokenSource interface {
	GetToken(ctx context.Context) (string, bool)
}

// Guard gates pages on the presence of a bearer token. It never calls the API.
type Guard struct {
	tokens TokenSource
	nav    nav.Navigator
}

func NewGuard(tokens TokenSource, navigator nav.Navigator) *Guard {
	return &Guard{tokens: tokens, nav: navigator}
}

// IsAuthenticated reports whether a token is stored.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	_, ok := g.tokens.GetToken(ctx)
	return ok
}

// RequireAuth sends unauthenticated visitors to the login page and reports
// whether the page may continue.
func (g *Guard) RequireAuth(ctx context.Context) bool {
	if !g.IsAuthenticated(ctx) {
		g.nav.Navigate(nav.Login, 0)
		return false
	}
	return true
}

// RedirectIfAuthenticated sends signed-in visitors of the login and register
// pages to the dashboard and reports whether it did.
func (g *Guard) RedirectIfAuthenticated(ctx context.Context) bool {
	if g.IsAuthenticated(ctx) {
		g.nav.Navigate(nav.Dashboard, 0)
		return true
	}
	return false
}
