package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the log instead of delivering them. Used when
// no mail provider is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "email_outbox", "to", msg.To, "subject", msg.Subject, "tag", msg.Tag, "body", msg.Body)
	return nil
}
