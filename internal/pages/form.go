// Package pages holds the controllers behind the login, register and
// dashboard pages. Rendering is left to a FormView and navigation to a
// nav.Navigator so the same flows run in the CLI and in tests.
package pages

import (
	"errors"
	"sync/atomic"

	"xydo.org/internal/api"
)

// ErrSubmitInProgress is returned when a form is submitted again before the
// previous submission finished.
var ErrSubmitInProgress = errors.New("pages: submission already in progress")

// FormView is the part of a page a controller writes to.
type FormView interface {
	// SetBusy disables the submit control and shows label while busy.
	SetBusy(busy bool, label string)
	ShowError(msg string)
	ShowSuccess(msg string)
	// OfferResendVerification shows an action leading to target.
	OfferResendVerification(target string)
}

// ValidationError is a local field check failure. It is shown like any other
// error but no request is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err failed local validation.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type submitGate struct {
	busy atomic.Bool
}

func (g *submitGate) acquire() bool { return g.busy.CompareAndSwap(false, true) }

func (g *submitGate) release() { g.busy.Store(false) }

func invalid(view FormView, msg string) error {
	view.ShowError(msg)
	return &ValidationError{Message: msg}
}

// failureMessage is the server message of an API failure, or fallback.
func failureMessage(err error, fallback string) string {
	if apiErr, ok := api.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
