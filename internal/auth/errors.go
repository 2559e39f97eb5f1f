package auth

import "errors"

var (
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrRefreshInvalid     = errors.New("auth: invalid refresh token")
	ErrRefreshExpired     = errors.New("auth: refresh token expired")
)

// inputError is a validation failure whose message is safe to show clients.
type inputError struct{ msg string }

func invalid(msg string) error { return &inputError{msg: msg} }

func (e *inputError) Error() string { return "auth: " + e.msg }
func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }
func (e *inputError) PublicMessage() string { return e.msg }
