// Package smtpout implements the SMTP send sink.
package smtpout

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/outbound"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
)

// Sender delivers generated replies through an SMTP submission server.
// A fresh connection is dialed per message; the pipe handler sends at
// most one.
type Sender struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

// NewSender creates an SMTP sender from the mail configuration block.
func NewSender(cfg config.MailConfig, logger *zap.Logger) *Sender {
	return &Sender{cfg: cfg, logger: logger}
}

// Send builds and transmits the reply, stamping the auto-reply markers
// so receiving agents do not answer it in turn. It returns the
// Message-ID assigned to the outgoing message.
func (s *Sender) Send(ctx context.Context, reply *core.GeneratedReply) (string, error) {
	messageID, raw, err := outbound.Build(reply, map[string]string{
		"Auto-Submitted":           "auto-replied",
		"X-Auto-Response-Suppress": "All",
	})
	if err != nil {
		return "", err
	}

	client, err := s.dial()
	if err != nil {
		return "", err
	}
	defer client.Close()

	if s.cfg.SMTPUser != "" {
		auth := sasl.NewPlainClient("", s.cfg.SMTPUser, s.cfg.SMTPPassword)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(reply.FromAddress, nil); err != nil {
		return "", fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(reply.ToAddress, nil); err != nil {
		return "", fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		// The message is already accepted at this point.
		s.logger.Warn("Failed to send QUIT", zap.Error(err))
	}

	s.logger.Debug("Message sent via SMTP",
		zap.String("host", s.addr()),
		zap.String("message_id", messageID))

	return messageID, nil
}

func (s *Sender) addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
}

func (s *Sender) dial() (*smtp.Client, error) {
	addr := s.addr()
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	switch {
	case s.cfg.UseTLS:
		client, err := smtp.DialTLS(addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s with TLS: %w", addr, err)
		}
		return client, nil
	case s.cfg.UseStartTLS:
		client, err := smtp.DialStartTLS(addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s with STARTTLS: %w", addr, err)
		}
		return client, nil
	default:
		client, err := smtp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return client, nil
	}
}
