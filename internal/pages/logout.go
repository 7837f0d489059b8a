package pages

import (
	"context"
	"fmt"

	"xydo.org/internal/nav"
)

// LogoutAPI ends the session on the server.
type LogoutAPI interface {
	Logout(ctx context.Context) error
}

// SessionClearer drops the stored token and user.
type SessionClearer interface {
	Clear(ctx context.Context) error
}

// Logout signs out and sends the visitor to the landing page. A failed call
// still clears the local session; the error is returned for logging only.
func Logout(ctx context.Context, client LogoutAPI, sess SessionClearer, navigator nav.Navigator) error {
	err := client.Logout(ctx)
	if err != nil {
		if clearErr := sess.Clear(ctx); clearErr != nil {
			err = fmt.Errorf("%w; clear session: %v", err, clearErr)
		}
	}
	navigator.Navigate(nav.Index, 0)
	return err
}
