package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("recipient has no email address")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// mailSender is the part of gomail.Dialer used here.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPNotifier struct {
	dir    Directory
	from   string
	sender mailSender
}

func NewSMTPNotifier(cfg SMTPConfig, dir Directory) *SMTPNotifier {
	return &SMTPNotifier{
		dir:    dir,
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg Message) error {
	to, err := n.dir.ContactEmail(ctx, msg.RecipientUserID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", msg.RecipientUserID, err)
	}
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to user %d: %w", msg.RecipientUserID, err)
	}
	return nil
}

// NewFromConfig returns an SMTP notifier when a host is configured and a LogNotifier otherwise.
func NewFromConfig(cfg SMTPConfig, dir Directory, logger *log.Logger) Notifier {
	if cfg.Host == "" {
		return LogNotifier{Logger: logger}
	}
	return NewSMTPNotifier(cfg, dir)
}
