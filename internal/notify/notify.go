package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var (
	ErrFailedToSend  = errors.New("failed to send email")
	ErrInvalidConfig = errors.New("invalid email config")
)

type Message struct {
	To      string
	Subject string
	Body    string
	Tag     string
}

func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrFailedToSend)
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: bad recipient: %v", ErrFailedToSend, err)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrFailedToSend)
	}
	return nil
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

func ResetInstructions(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Tag:     "password-reset",
		Body: "You are receiving this email because you (or someone else) have requested the reset of the password for your account.\n\n" +
			"Please click on the following link, or paste this into your browser to complete the process:\n\n" +
			link + "\n\n" +
			"If you did not request this, please ignore this email and your password will remain unchanged.\n",
	}
}

func PasswordChanged(to string) Message {
	return Message{
		To:      to,
		Subject: "Your password has been changed",
		Tag:     "password-changed",
		Body:    "This is a confirmation that the password for your account " + to + " has just been changed.\n",
	}
}
