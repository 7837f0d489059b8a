package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is the single failure type of the client: transport failures carry
// Status 0 and the cause in Err, failed responses carry the server message.
type Error struct {
	Status  int
	Message string
	// RequiresVerification is set when login was refused because the email
	// address has not been verified yet.
	RequiresVerification bool
	Err                  error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return "api: " + e.Message
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether the request never produced a response.
func (e *Error) IsTransport() bool { return e.Status == 0 }

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// RequiresVerification reports whether err is a login refusal for an
// unverified account.
func RequiresVerification(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.RequiresVerification
}

type errorBody struct {
	Error                string `json:"error"`
	Message              string `json:"message"`
	RequiresVerification bool   `json:"requiresVerification"`
}

func errorFromBody(status int, body json.RawMessage) *Error {
	apiErr := &Error{Status: status, Message: GenericErrorMessage}
	if len(body) == 0 {
		return apiErr
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}
	switch {
	case strings.TrimSpace(eb.Error) != "":
		apiErr.Message = eb.Error
	case strings.TrimSpace(eb.Message) != "":
		apiErr.Message = eb.Message
	}
	apiErr.RequiresVerification = eb.RequiresVerification
	return apiErr
}
