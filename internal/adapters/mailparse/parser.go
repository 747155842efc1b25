// Package mailparse turns raw RFC 5322 bytes into the core message
// model. It prefers the plain text body and falls back to text derived
// from the HTML part when no plain part exists.
package mailparse

import (
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
)

// Parser parses incoming email messages.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new message parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads one message from r and builds the immutable core message.
// Decoding problems inside individual parts are tolerated; only a
// structurally unreadable message fails.
func (p *Parser) Parse(r io.Reader) (*core.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	header := mr.Header

	fromAddr, fromName := firstAddress(header, "From")
	replyTo, _ := firstAddress(header, "Reply-To")

	subject, err := header.Subject()
	if err != nil {
		subject = strings.TrimSpace(header.Get("Subject"))
	}

	msg := &core.Message{
		MessageID: strings.TrimSpace(header.Get("Message-Id")),
		From:      fromAddr,
		FromName:  fromName,
		To:        addressList(header, "To"),
		Cc:        addressList(header, "Cc"),
		ReplyTo:   replyTo,
		Subject:   subject,
		Date:      strings.TrimSpace(header.Get("Date")),
		Headers:   flattenHeaders(header),
	}

	textBody, htmlBody, attachments := p.readParts(mr)
	msg.Attachments = attachments

	if textBody != "" {
		msg.Body = textBody
	} else if htmlBody != "" {
		msg.Body = strings.TrimSpace(html2text.HTML2Text(htmlBody))
	}

	return msg, nil
}

// readParts walks the MIME structure collecting the first text and HTML
// bodies plus attachment metadata. Part-level read errors are logged
// and skipped so one broken part cannot lose the whole message.
func (p *Parser) readParts(mr *mail.Reader) (textBody, htmlBody string, attachments []core.Attachment) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("Skipping unreadable message part", zap.Error(err))
			continue
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				p.logger.Warn("Failed to read message part", zap.Error(err))
				continue
			}
			switch contentType {
			case "text/plain":
				if textBody == "" {
					textBody = strings.TrimSpace(string(content))
				}
			case "text/html":
				if htmlBody == "" {
					htmlBody = string(content)
				}
			}

		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			if err != nil || filename == "" {
				filename = "unnamed"
			}
			contentType, _, _ := h.ContentType()
			size, _ := io.Copy(io.Discard, part.Body)
			attachments = append(attachments, core.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int(size),
			})
		}
	}
	return textBody, htmlBody, attachments
}

// firstAddress returns the first address and display name from the
// named header field.
func firstAddress(header mail.Header, field string) (addr, name string) {
	list, err := header.AddressList(field)
	if err != nil || len(list) == 0 {
		return "", ""
	}
	return list[0].Address, list[0].Name
}

// addressList returns the bare addresses from the named header field,
// display names stripped.
func addressList(header mail.Header, field string) []string {
	list, err := header.AddressList(field)
	if err != nil || len(list) == 0 {
		return nil
	}
	addrs := make([]string, 0, len(list))
	for _, a := range list {
		if a.Address != "" {
			addrs = append(addrs, a.Address)
		}
	}
	return addrs
}

// flattenHeaders builds the name → value map the matcher sees. Keys keep
// the case they arrived with; when a field repeats, the value that
// appears last in the message wins.
func flattenHeaders(header mail.Header) map[string]string {
	flat := make(map[string]string)
	fields := header.Fields()
	// Fields walks a parsed header in wire order, so overwriting on each
	// occurrence leaves the last value per key.
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		flat[fields.Key()] = value
	}
	return flat
}
