package pages

import (
	"context"
	"time"

	"xydo.org/internal/api"
	"xydo.org/internal/auth"
	"xydo.org/internal/nav"
)

const (
	LoginBusyLabel      = "Logging in..."
	LoginMissingFields  = "Please enter both email and password"
	LoginSucceeded      = "Login successful! Redirecting..."
	LoginFailed         = "Login failed. Please check your credentials."
	LoginNeedsVerifying = "Please verify your email before logging in. Check your inbox for the verification link."
)

// LoginRedirectDelay is how long the success message stays up.
const LoginRedirectDelay = time.Second

// LoginAPI signs a user in and stores the session.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
}

// Login drives the login form.
type Login struct {
	client LoginAPI
	guard  *auth.Guard
	nav    nav.Navigator
	view   FormView
	target string
	gate   submitGate
}

func NewLogin(client LoginAPI, guard *auth.Guard, navigator nav.Navigator, view FormView) *Login {
	return &Login{client: client, guard: guard, nav: navigator, view: view, target: nav.Dashboard}
}

// NewAdminLogin is the admin variant: a successful login lands on the admin
// dashboard.
func NewAdminLogin(client LoginAPI, guard *auth.Guard, navigator nav.Navigator, view FormView) *Login {
	p := NewLogin(client, guard, navigator, view)
	p.target = nav.AdminDashboard
	return p
}

// Open runs the page entry check. It reports false when the visitor was
// already signed in and has been sent to the dashboard.
func (p *Login) Open(ctx context.Context) bool {
	return !p.guard.RedirectIfAuthenticated(ctx)
}

// Submit validates the credentials, signs in, and schedules the redirect.
// Failures are shown on the view and returned.
func (p *Login) Submit(ctx context.Context, email, password string) error {
	if !p.gate.acquire() {
		return ErrSubmitInProgress
	}
	defer p.gate.release()

	if email == "" || password == "" {
		return invalid(p.view, LoginMissingFields)
	}

	p.view.SetBusy(true, LoginBusyLabel)
	if _, err := p.client.Login(ctx, email, password); err != nil {
		if api.RequiresVerification(err) {
			p.view.ShowError(LoginNeedsVerifying)
			p.view.OfferResendVerification(nav.VerifyPending(email))
		} else {
			p.view.ShowError(failureMessage(err, LoginFailed))
		}
		p.view.SetBusy(false, "")
		return err
	}

	p.view.ShowSuccess(LoginSucceeded)
	p.nav.Navigate(p.target, LoginRedirectDelay)
	return nil
}
