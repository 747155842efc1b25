package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Structural heuristics for messages that must never receive an
// auto-reply, regardless of the configured rule set. These run before
// rule matching and are authoritative.
var noReplyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(no-?reply|noreply|mailer-daemon|postmaster)@`),
	regexp.MustCompile(`(?i)^bounce[s]?@`),
	regexp.MustCompile(`(?i)^auto[-_]?reply@`),
}

var mailingListHeaders = []string{"List-Unsubscribe", "List-Id", "Mailing-List"}

// SkipGuard pre-filters messages that structurally should not be
// answered: no-reply senders, mailing list traffic, auto-submitted mail
// and bulk/junk/list precedence.
type SkipGuard struct{}

// NewSkipGuard creates a new skip guard.
func NewSkipGuard() *SkipGuard {
	return &SkipGuard{}
}

// ShouldSkip reports whether the message must not be auto-replied to,
// with a human-readable reason. Checks run in fixed order and the first
// hit wins. The check has no side effects and never fails.
func (g *SkipGuard) ShouldSkip(msg *Message) (bool, string) {
	for _, pattern := range noReplyPatterns {
		if pattern.MatchString(msg.From) {
			return true, fmt.Sprintf("sender matches no-reply pattern: %s", pattern.String())
		}
	}

	for _, header := range mailingListHeaders {
		if _, ok := msg.Headers[header]; ok {
			return true, fmt.Sprintf("message has mailing list header: %s", header)
		}
	}

	autoSubmitted := strings.ToLower(msg.Headers["Auto-Submitted"])
	if autoSubmitted != "" && autoSubmitted != "no" {
		return true, fmt.Sprintf("Auto-Submitted header: %s", autoSubmitted)
	}

	switch strings.ToLower(msg.Headers["Precedence"]) {
	case "bulk", "junk", "list":
		return true, fmt.Sprintf("Precedence header: %s", strings.ToLower(msg.Headers["Precedence"]))
	}

	return false, ""
}
