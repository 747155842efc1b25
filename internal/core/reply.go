package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ReplyGenerator turns a matched message into a GeneratedReply: it
// resolves the rule's provider through the registry, asks it for reply
// text and derives subject, destination and threading headers. It has no
// side effects beyond the provider call.
type ReplyGenerator struct {
	registry    ProviderRegistry
	fromAddress string
	logger      *zap.Logger
}

// NewReplyGenerator creates a reply generator. fromAddress is the static
// address the agent sends from; it never comes from the incoming
// message.
func NewReplyGenerator(registry ProviderRegistry, fromAddress string, logger *zap.Logger) *ReplyGenerator {
	return &ReplyGenerator{
		registry:    registry,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// Generate produces a reply for msg under the matched rule. Provider
// resolution and generation errors propagate unchanged; retries, if any,
// belong to the provider or to the calling transport via exit code.
func (g *ReplyGenerator) Generate(ctx context.Context, msg *Message, rule *Rule) (*GeneratedReply, error) {
	provider, err := g.registry.Get(rule.LLMProvider)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("Generating reply",
		zap.String("rule", rule.Name),
		zap.String("provider", provider.Name()))

	body, err := provider.GenerateReply(ctx, msg.Body, rule.SystemPrompt, msg.Subject)
	if err != nil {
		return nil, err
	}

	return &GeneratedReply{
		Subject:     replySubject(msg.Subject),
		Body:        body,
		ToAddress:   msg.ReplyAddress(),
		FromAddress: g.fromAddress,
		InReplyTo:   msg.MessageID,
		References:  buildReferences(msg),
	}, nil
}

// replySubject derives the reply subject: empty subjects get a fixed
// placeholder, an existing Re: prefix is kept as-is, anything else gets
// one prepended.
func replySubject(original string) string {
	subject := strings.TrimSpace(original)
	if subject == "" {
		return "Re: (no subject)"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// buildReferences assembles the References chain for threading: the
// original References header followed by the original Message-ID, space
// separated. Returns "" when neither exists so the header is omitted
// rather than emitted empty.
func buildReferences(msg *Message) string {
	var parts []string
	if refs := msg.Headers["References"]; refs != "" {
		parts = append(parts, refs)
	}
	if msg.MessageID != "" {
		parts = append(parts, msg.MessageID)
	}
	return strings.Join(parts, " ")
}
