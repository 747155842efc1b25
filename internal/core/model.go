package core

// Attachment describes an attachment on an incoming message. Only
// metadata is kept; attachment bodies are never loaded.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int
}

// Message represents a parsed incoming email message. It is constructed
// once by the parser and never mutated afterwards.
type Message struct {
	MessageID   string
	From        string
	FromName    string
	To          []string
	Cc          []string
	ReplyTo     string
	Subject     string
	Body        string
	Date        string
	Headers     map[string]string
	Attachments []Attachment
}

// ReplyAddress returns the address a reply should go to: the Reply-To
// override when present, otherwise the sender.
func (m *Message) ReplyAddress() string {
	if m.ReplyTo != "" {
		return m.ReplyTo
	}
	return m.From
}

// Rule is an operator-configured predicate plus an action describing how
// a matching message should be auto-replied to. Rules are loaded once at
// startup and are read-only for the process lifetime.
type Rule struct {
	Name            string            `mapstructure:"name"`
	SenderPattern   string            `mapstructure:"sender_pattern"`
	RecipientFilter string            `mapstructure:"recipient_filter"`
	HeadersMatch    map[string]string `mapstructure:"headers_match"`
	LLMProvider     string            `mapstructure:"llm_provider"`
	DeliveryMode    string            `mapstructure:"delivery_mode"`
	SystemPrompt    string            `mapstructure:"system_prompt"`
	Priority        int               `mapstructure:"priority"`
	Enabled         bool              `mapstructure:"enabled"`
	Action          string            `mapstructure:"action"`
}

// IsSkip reports whether this rule suppresses replies instead of
// generating one.
func (r *Rule) IsSkip() bool {
	return r.Action == "skip"
}

// MatchOutcome is the result of evaluating the rule list against a
// message. Exactly one state holds: no rule matched (both fields zero),
// a configured skip rule matched (Skipped true), or a single normal rule
// was selected (Rule non-nil).
type MatchOutcome struct {
	Rule    *Rule
	Skipped bool
}

// Matched reports whether a normal (non-skip) rule was selected.
func (o MatchOutcome) Matched() bool {
	return o.Rule != nil
}

// GeneratedReply is a fully derived reply payload, ready for delivery.
// References is the space-joined identifier chain for threading; it is
// empty (and the header omitted) when the original carried neither a
// References header nor a Message-ID.
type GeneratedReply struct {
	Subject     string
	Body        string
	ToAddress   string
	FromAddress string
	InReplyTo   string
	References  string
}

// DeliveryMode selects how a generated reply leaves the process.
type DeliveryMode string

const (
	// ModeSend dispatches the reply via SMTP.
	ModeSend DeliveryMode = "send"
	// ModeDraft saves the reply to an IMAP drafts folder for review.
	ModeDraft DeliveryMode = "draft"
)

// ParseDeliveryMode normalizes a configured mode string.
func ParseDeliveryMode(s string) (DeliveryMode, bool) {
	switch DeliveryMode(s) {
	case ModeSend, ModeDraft:
		return DeliveryMode(s), true
	}
	return "", false
}

// DeliveryOutcome reports the result of one delivery attempt. On success
// MessageID carries the identifier assigned to the outgoing or saved
// message; on failure Error carries the underlying sink error text. A
// failed delivery is always reported as data, never as a panic or an
// uncaught error.
type DeliveryOutcome struct {
	Success   bool
	Mode      DeliveryMode
	MessageID string
	Error     string
}
