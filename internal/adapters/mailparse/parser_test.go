package mailparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const simpleMessage = "Message-ID: <orig@corp.com>\r\n" +
	"From: Boss Person <boss@corp.com>\r\n" +
	"To: Me <me@example.com>, other@example.com\r\n" +
	"Cc: cc@example.com\r\n" +
	"Reply-To: assistant@corp.com\r\n" +
	"Subject: Quarterly numbers\r\n" +
	"Date: Mon, 10 Mar 2025 09:00:00 +0000\r\n" +
	"X-Priority: 1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please send the figures.\r\n"

func TestParseSimpleMessage(t *testing.T) {
	parser := NewParser(zap.NewNop())

	msg, err := parser.Parse(strings.NewReader(simpleMessage))
	require.NoError(t, err)

	assert.Equal(t, "<orig@corp.com>", msg.MessageID)
	assert.Equal(t, "boss@corp.com", msg.From)
	assert.Equal(t, "Boss Person", msg.FromName)
	assert.Equal(t, []string{"me@example.com", "other@example.com"}, msg.To)
	assert.Equal(t, []string{"cc@example.com"}, msg.Cc)
	assert.Equal(t, "assistant@corp.com", msg.ReplyTo)
	assert.Equal(t, "Quarterly numbers", msg.Subject)
	assert.Equal(t, "Please send the figures.", msg.Body)
	assert.Equal(t, "1", msg.Headers["X-Priority"])
	assert.Equal(t, "assistant@corp.com", msg.ReplyAddress())
}

func TestParseMultipartPrefersPlainText(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"To: me@example.com\r\n" +
		"Subject: multi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--BOUND--\r\n"

	parser := NewParser(zap.NewNop())
	msg, err := parser.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "plain body", msg.Body)
}

func TestParseHTMLOnlyFallsBackToText(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"To: me@example.com\r\n" +
		"Subject: html only\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>hello there</p></body></html>\r\n"

	parser := NewParser(zap.NewNop())
	msg, err := parser.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "hello there")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestParseAttachmentMetadata(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"To: me@example.com\r\n" +
		"Subject: with attachment\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--BOUND\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4 fake content\r\n" +
		"--BOUND--\r\n"

	parser := NewParser(zap.NewNop())
	msg, err := parser.Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "see attached", msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "report.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Greater(t, msg.Attachments[0].Size, 0)
}

func TestParseRepeatedHeaderLastValueWins(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"To: me@example.com\r\n" +
		"Subject: dupes\r\n" +
		"X-Origin: first\r\n" +
		"X-Origin: second\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	parser := NewParser(zap.NewNop())
	msg, err := parser.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Headers["X-Origin"])
}

func TestParseMissingOptionalFields(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"To: me@example.com\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	parser := NewParser(zap.NewNop())
	msg, err := parser.Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Empty(t, msg.MessageID)
	assert.Empty(t, msg.Subject)
	assert.Empty(t, msg.ReplyTo)
	assert.Empty(t, msg.Cc)
	// Reply-To absent, so replies go back to the sender.
	assert.Equal(t, "a@b.c", msg.ReplyAddress())
}

func TestParseGarbageFails(t *testing.T) {
	parser := NewParser(zap.NewNop())
	_, err := parser.Parse(strings.NewReader("not an email at all"))
	assert.Error(t, err)
}
