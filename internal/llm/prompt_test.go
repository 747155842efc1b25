package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUserMessage(t *testing.T) {
	got := BuildUserMessage("Please send the figures.", "Quarterly numbers")
	want := "Subject: Quarterly numbers\n" +
		"\n" +
		"Email content:\n" +
		"Please send the figures.\n" +
		"\n" +
		"Please write a reply to this email."
	assert.Equal(t, want, got)
}

func TestBuildUserMessageWithoutSubject(t *testing.T) {
	got := BuildUserMessage("hello", "")
	want := "Email content:\n" +
		"hello\n" +
		"\n" +
		"Please write a reply to this email."
	assert.Equal(t, want, got)
}
