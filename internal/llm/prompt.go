// Package llm contains the provider registry and the prompt framing
// shared by every generation backend.
package llm

import "strings"

// BuildUserMessage assembles the uniform user message sent to every
// backend: an optional subject line, the labelled email content and a
// fixed instruction. Keeping the framing identical across providers
// makes prompt quality comparable and lets system-prompt authors rely on
// consistent input regardless of the selected backend.
func BuildUserMessage(content, subject string) string {
	var parts []string

	if subject != "" {
		parts = append(parts, "Subject: "+subject, "")
	}

	parts = append(parts,
		"Email content:",
		content,
		"",
		"Please write a reply to this email.",
	)

	return strings.Join(parts, "\n")
}
