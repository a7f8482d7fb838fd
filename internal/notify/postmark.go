package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
}

type PostmarkNotifier struct {
	client *postmark.Client
	from   string
}

func NewPostmarkNotifier(cfg PostmarkConfig) (*PostmarkNotifier, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}
	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:   cfg.SenderEmail,
	}, nil
}

func (n *PostmarkNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.from,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		TextBody: msg.Body,
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
