// Package outbound renders a generated reply into RFC 5322 bytes shared
// by the SMTP and IMAP sinks.
package outbound

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/mikey/mail-agent/internal/core"
)

// UserAgent identifies this software in outgoing messages.
const UserAgent = "mail-agent/1.0"

// NewMessageID generates a fresh globally-unique Message-ID, in angle
// brackets, under the domain of the given address.
func NewMessageID(fromAddress string) string {
	domain := "localhost"
	if i := strings.LastIndex(fromAddress, "@"); i >= 0 && i < len(fromAddress)-1 {
		domain = fromAddress[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// Build renders the reply as a complete message. The extra headers let
// each sink stamp its own markers (auto-reply suppression for sends,
// the pending-review marker for drafts). It returns the assigned
// Message-ID together with the raw bytes so the caller can report the
// exact identifier that was sent or stored.
func Build(reply *core.GeneratedReply, extraHeaders map[string]string) (string, []byte, error) {
	messageID := NewMessageID(reply.FromAddress)

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: reply.FromAddress}})
	h.SetAddressList("To", []*mail.Address{{Address: reply.ToAddress}})
	h.SetSubject(reply.Subject)
	h.Set("Message-Id", messageID)

	if reply.InReplyTo != "" {
		h.Set("In-Reply-To", reply.InReplyTo)
	}
	if reply.References != "" {
		h.Set("References", reply.References)
	}

	h.Set("X-Mailer", UserAgent)
	for name, value := range extraHeaders {
		h.Set(name, value)
	}

	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, reply.Body); err != nil {
		w.Close()
		return "", nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finalize message: %w", err)
	}

	return messageID, buf.Bytes(), nil
}
