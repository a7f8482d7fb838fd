package events

import (
	"context"
	"time"
)

type Type string

const (
	AccountRegistered      Type = "account.registered"
	AccountLoggedIn        Type = "account.logged_in"
	ProfileUpdated         Type = "account.profile_updated"
	AccountDeleted         Type = "account.deleted"
	PasswordResetRequested Type = "account.password_reset_requested"
	PasswordReset          Type = "account.password_reset"
	PasswordChanged        Type = "account.password_changed"
)

// Event never carries secrets: no password hashes, no reset tokens.
type Event struct {
	Type      Type      `json:"type"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
