package delivery

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/pkg/retry"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain-text mail through one relay.
type SMTPMailer struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Type() catalog.ActionType { return catalog.ActionEmail }

// Deliver runs the SMTP exchange in a goroutine so the action timeout is
// honored; net/smtp has no context support. An abandoned exchange finishes
// or fails on its own.
func (m *SMTPMailer) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	email, err := configAs[*catalog.EmailConfig](cfg)
	if err != nil {
		return nil, err
	}

	recipients := email.Recipients()
	if len(recipients) == 0 {
		return nil, retry.NewFatalError(fmt.Errorf("no recipients after interpolation"))
	}

	from := email.From
	if from == "" {
		from = m.cfg.From
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host)
	msg := buildMessage(from, email, messageID, time.Now())

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(addr, auth, from, recipients, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("smtp send failed: %w", err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return map[string]interface{}{
		"message_id": messageID,
		"recipients": len(recipients),
	}, nil
}

func buildMessage(from string, email *catalog.EmailConfig, messageID string, now time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) {
		if v != "" {
			b.WriteString(k + ": " + sanitizeHeader(v) + "\r\n")
		}
	}
	header("From", from)
	header("To", email.To)
	header("Cc", email.Cc)
	header("Subject", email.Subject)
	header("Message-ID", messageID)
	header("Date", now.UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// sanitizeHeader drops line breaks so interpolated values cannot inject
// headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
