package core

import (
	"context"
	"time"
)

// Provider defines the interface for reply-generation backends. One
// implementation exists per backend; instances are resolved by name
// through the provider registry.
type Provider interface {
	// Name returns the registry name of the backend.
	Name() string

	// DefaultModel returns the model used when none is configured.
	DefaultModel() string

	// GenerateReply produces reply text for the given email content under
	// the rule's system prompt. Subject may be empty.
	GenerateReply(ctx context.Context, content, systemPrompt, subject string) (string, error)
}

// ProviderRegistry resolves a provider name to a constructed instance,
// building and caching on first use. Unknown names fail with an error
// enumerating the registered names.
type ProviderRegistry interface {
	Get(name string) (Provider, error)
	Names() []string
}

// MessageSender delivers a fully-addressed reply via SMTP and returns
// the Message-ID assigned to the outgoing message.
type MessageSender interface {
	Send(ctx context.Context, reply *GeneratedReply) (string, error)
}

// DraftSaver stores a fully-addressed reply in an IMAP drafts folder and
// returns the Message-ID of the stored message.
type DraftSaver interface {
	SaveDraft(ctx context.Context, reply *GeneratedReply) (string, error)
}

// ReplyHistory records delivered auto-replies so the agent can refuse to
// answer the same sender more than a configured number of times per
// window. Implementations must be safe for concurrent use.
type ReplyHistory interface {
	// Count returns how many replies were recorded for sender within the
	// trailing window.
	Count(ctx context.Context, sender string, window time.Duration) (int, error)

	// Record notes that a reply was delivered to sender now.
	Record(ctx context.Context, sender string) error
}
