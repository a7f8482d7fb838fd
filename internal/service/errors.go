package service

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("account already exists")
	ErrNotRegistered      = errors.New("email not registered")
	ErrNotFound           = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid reset token")
)

const (
	MsgInvalidEmail       = "Please enter a valid email address"
	MsgPasswordTooShort   = "Password must be at least 8 characters long"
	MsgPasswordMismatch   = "Passwords do not match"
	MsgInvalidToken       = "Invalid token"
	MsgAccountExists      = "Account already exists"
	MsgEmailNotRegistered = "Email not registered"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUnauthorized       = "Unauthorized"
	MsgNoSuchEmail        = "Account with that email address does not exist"
)

// Error is a client-facing failure. Kind is one of the sentinels above;
// Messages keeps the order the checks ran in.
type Error struct {
	Kind     error
	Messages []string
}

func newError(kind error, msgs ...string) *Error {
	return &Error{Kind: kind, Messages: msgs}
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + strings.Join(e.Messages, "; ")
}

func (e *Error) Unwrap() error { return e.Kind }

// Messages returns the client-facing messages carried by err, if any.
func Messages(err error) []string {
	var se *Error
	if errors.As(err, &se) {
		return se.Messages
	}
	return nil
}
