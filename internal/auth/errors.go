package auth

import "errors"

var (
	ErrInvalidRole   = errors.New("auth: invalid role")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
)
