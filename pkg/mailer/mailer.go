// Package mailer renders and delivers the account emails.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

// Message is a single outbound HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("mailer: message has no recipients")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return fmt.Errorf("mailer: empty recipient")
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("mailer: message has no subject")
	}
	return nil
}

// Sender delivers messages. Errors are always returned to the caller.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the transport configured by cfg.Backend.
func New(cfg config.MailConfig, logg *logger.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.MailBackendConsole:
		return NewConsoleSender(logg), nil
	case config.MailBackendSMTP, "":
		return NewSMTPSender(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported mail backend %q", cfg.Backend)
	}
}

// SMTPSender delivers through an SMTP relay, upgrading with STARTTLS when configured.
type SMTPSender struct {
	from    string
	addr    string
	host    string
	auth    smtp.Auth
	useTLS  bool
	timeout time.Duration
	deliver func(e *email.Email) error
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	s := &SMTPSender{
		from:    cfg.From(),
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host:    cfg.Host,
		useTLS:  cfg.UseTLS,
		timeout: cfg.Timeout,
	}
	if cfg.User != "" {
		s.auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	s.deliver = s.send
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	if err := s.deliverWithin(ctx, s.build(msg)); err != nil {
		return fmt.Errorf("mailer: smtp send to %s: %w", s.addr, err)
	}
	return nil
}

// deliverWithin stops waiting once ctx ends or the configured timeout
// passes. net/smtp takes no context, so an abandoned send finishes in the
// background.
func (s *SMTPSender) deliverWithin(ctx context.Context, e *email.Email) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- s.deliver(e) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPSender) build(msg Message) *email.Email {
	e := email.NewEmail()
	e.From = s.from
	e.To = append([]string(nil), msg.To...)
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	return e
}

func (s *SMTPSender) send(e *email.Email) error {
	if s.useTLS {
		return e.SendWithStartTLS(s.addr, s.auth, &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12})
	}
	return e.Send(s.addr, s.auth)
}

// ConsoleSender writes messages to the log instead of sending them.
type ConsoleSender struct {
	logg *logger.Logger
}

func NewConsoleSender(logg *logger.Logger) *ConsoleSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &ConsoleSender{logg: logg}
}

func (c *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
		"body":    msg.HTML,
	})
	c.logg.Info(ctx, "mailer.console.message")
	return nil
}
