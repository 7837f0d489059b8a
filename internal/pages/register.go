package pages

import (
	"context"
	"errors"
	"net/url"
	"time"

	"xydo.org/internal/api"
	"xydo.org/internal/auth"
	"xydo.org/internal/nav"
)

const (
	RegisterBusyLabel       = "Creating Account..."
	RegisterMissingFields   = "Please fill in all required fields"
	RegisterPasswordMatch   = "Passwords do not match"
	RegisterPasswordTooWeak = "Password must be at least 6 characters"
	RegisterInvalidRole     = "Please choose a valid role"
	RegisterSucceeded       = "Account created successfully! Redirecting to dashboard..."
	RegisterFailed          = "Registration failed. Please try again."
)

const RegisterRedirectDelay = 1500 * time.Millisecond

// RegisterAPI creates an account.
type RegisterAPI interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
}

// RegisterForm is what the user typed. Role may be left empty.
type RegisterForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
	Role     string
	Team     string
}

// Register drives the registration form.
type Register struct {
	client RegisterAPI
	guard  *auth.Guard
	nav    nav.Navigator
	view   FormView
	gate   submitGate
}

func NewRegister(client RegisterAPI, guard *auth.Guard, navigator nav.Navigator, view FormView) *Register {
	return &Register{client: client, guard: guard, nav: navigator, view: view}
}

// Open runs the page entry check and returns the role to prefill from the
// page query. ok is false when the visitor was redirected.
func (p *Register) Open(ctx context.Context, query url.Values) (role string, ok bool) {
	if p.guard.RedirectIfAuthenticated(ctx) {
		return "", false
	}
	return PrefillRole(query), true
}

// PrefillRole reads ?role=, defaulting to the player role.
func PrefillRole(query url.Values) string {
	if r := query.Get("role"); r != "" {
		return r
	}
	return string(auth.DefaultRole)
}

// Submit validates form, creates the account and schedules the redirect.
func (p *Register) Submit(ctx context.Context, form RegisterForm) error {
	if !p.gate.acquire() {
		return ErrSubmitInProgress
	}
	defer p.gate.release()

	req, err := p.validate(form)
	if err != nil {
		return err
	}

	p.view.SetBusy(true, RegisterBusyLabel)
	if _, err := p.client.Register(ctx, req); err != nil {
		p.view.ShowError(failureMessage(err, RegisterFailed))
		p.view.SetBusy(false, "")
		return err
	}

	p.view.ShowSuccess(RegisterSucceeded)
	p.nav.Navigate(nav.Dashboard, RegisterRedirectDelay)
	return nil
}

func (p *Register) validate(form RegisterForm) (api.RegisterRequest, error) {
	if form.Name == "" || form.Email == "" || form.Password == "" {
		return api.RegisterRequest{}, invalid(p.view, RegisterMissingFields)
	}
	if form.Password != form.Confirm {
		return api.RegisterRequest{}, invalid(p.view, RegisterPasswordMatch)
	}
	if err := auth.CheckPasswordPolicy(form.Password); err != nil {
		return api.RegisterRequest{}, invalid(p.view, RegisterPasswordTooWeak)
	}

	role := auth.DefaultRole
	if form.Role != "" {
		parsed, err := auth.ParseRole(form.Role)
		if errors.Is(err, auth.ErrInvalidRole) {
			return api.RegisterRequest{}, invalid(p.view, RegisterInvalidRole)
		}
		role = parsed
	}
	return api.RegisterRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     role,
		Team:     form.Team,
	}, nil
}
