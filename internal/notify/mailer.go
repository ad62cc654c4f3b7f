package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/lulgamer69/event-ticket-system/internal/config"
)

// Mailer sends plain-text email over SMTP, attaching the ticket PDF when
// the message carries one.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewMailer returns a Mailer, or nil when SMTP is not configured.
func NewMailer(cfg config.NotifyConfig) *Mailer {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return nil
	}
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

// Send delivers one message.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mailer: empty recipient")
	}
	em, err := m.build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(20 * time.Second),
	}
	if m.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.user),
			mail.WithPassword(m.pass),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func (m *Mailer) build(msg Message) (*mail.Msg, error) {
	em := mail.NewMsg()
	if err := em.From(m.from); err != nil {
		return nil, fmt.Errorf("mailer: from: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return nil, fmt.Errorf("mailer: to: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.AttachmentPath != "" {
		if _, err := os.Stat(msg.AttachmentPath); err != nil {
			return nil, fmt.Errorf("mailer: attachment: %w", err)
		}
		em.AttachFile(msg.AttachmentPath)
	}
	return em, nil
}
