package pages

import (
	"context"
	"errors"
	"fmt"

	"xydo.org/internal/api"
	"xydo.org/internal/auth"
	"xydo.org/internal/nav"
	"xydo.org/internal/obs"
	"xydo.org/internal/session"
)

var (
	// ErrNotSignedIn is returned after the guard sent the visitor to login.
	ErrNotSignedIn = errors.New("pages: not signed in")
	// ErrNoProfile is returned when /auth/me answered without a user.
	ErrNoProfile = errors.New("pages: profile unavailable")
)

const PlaceholderTitle = "Welcome to XY-DO Athletic Programs!"

// DashboardAPI is what the dashboard reads from the server.
type DashboardAPI interface {
	Me(ctx context.Context) (*api.Envelope[session.User], error)
	ListContent(ctx context.Context, week int) (*api.Envelope[[]api.Content], error)
}

// UserSource returns the cached profile.
type UserSource interface {
	GetUser(ctx context.Context) (*session.User, bool)
}

// Card is one weekly content entry.
type Card struct {
	Week        int
	Title       string
	Description string
	Link        string
}

// Dashboard is the rendered state of the dashboard page.
type Dashboard struct {
	Welcome   string
	Role      auth.Role
	RoleLabel string
	// CoachSections selects the coach-only sections; otherwise the
	// athlete-only sections are shown.
	CoachSections bool
	Cards         []Card
	// Placeholder replaces Cards when nothing is visible.
	Placeholder string
}

type DashboardPage struct {
	client DashboardAPI
	users  UserSource
	guard  *auth.Guard
	nav    nav.Navigator
}

func NewDashboard(client DashboardAPI, users UserSource, guard *auth.Guard, navigator nav.Navigator) *DashboardPage {
	return &DashboardPage{client: client, users: users, guard: guard, nav: navigator}
}

// Load builds the dashboard for the signed-in user. Without a token the
// visitor is sent to login; so is a visitor whose profile cannot be fetched.
func (p *DashboardPage) Load(ctx context.Context) (*Dashboard, error) {
	if !p.guard.RequireAuth(ctx) {
		return nil, ErrNotSignedIn
	}

	user, ok := p.users.GetUser(ctx)
	if !ok {
		if _, err := p.client.Me(ctx); err != nil {
			p.nav.Navigate(nav.Login, 0)
			return nil, fmt.Errorf("load profile: %w", err)
		}
		if user, ok = p.users.GetUser(ctx); !ok {
			return nil, ErrNoProfile
		}
	}
	return p.build(ctx, user), nil
}

func (p *DashboardPage) build(ctx context.Context, user *session.User) *Dashboard {
	d := &Dashboard{
		Welcome:       user.DisplayName(),
		Role:          user.Role,
		RoleLabel:     dashboardLabel(user.Role),
		CoachSections: user.Role.IsCoach(),
	}

	resp, err := p.client.ListContent(ctx, 0)
	if err != nil {
		obs.Error("dashboard content", map[string]any{"error": err.Error()})
	} else {
		for _, item := range resp.Data {
			if !item.VisibleTo(string(user.Role)) {
				continue
			}
			d.Cards = append(d.Cards, Card{
				Week:        item.Week,
				Title:       item.Title,
				Description: item.Description,
				Link:        nav.WeeklyContent(item.Week),
			})
		}
	}
	if len(d.Cards) == 0 {
		d.Placeholder = Placeholder(user.Role)
	}
	return d
}

// Placeholder is the copy shown when no content is published for role.
func Placeholder(role auth.Role) string {
	return fmt.Sprintf("Weekly training content for %s will be available soon.", role.Audience())
}

// The dashboard only distinguishes coaches from everyone else.
func dashboardLabel(r auth.Role) string {
	if r.IsCoach() {
		return auth.RoleCoach.Label()
	}
	return auth.RoleAthlete.Label()
}
