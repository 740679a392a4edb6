// Package notify delivers best-effort email notifications to clinic users.
package notify

import (
	"context"
	"log"
)

// Message is addressed to a user id; senders resolve contact details themselves.
type Message struct {
	RecipientUserID int64
	Subject         string
	HTML            string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Directory resolves a user id to a deliverable email address.
type Directory interface {
	ContactEmail(ctx context.Context, userID int64) (string, error)
}

// DirectoryFunc adapts a plain function to Directory.
type DirectoryFunc func(ctx context.Context, userID int64) (string, error)

func (f DirectoryFunc) ContactEmail(ctx context.Context, userID int64) (string, error) {
	return f(ctx, userID)
}

// LogNotifier only logs messages. It is used when no mail transport is configured.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	n.Logger.Printf("notification user_id=%d subject=%q bytes=%d", msg.RecipientUserID, msg.Subject, len(msg.HTML))
	return nil
}
