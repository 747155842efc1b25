package core

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// patternMatcher evaluates one configured pattern. Patterns are regular
// expressions matched case-insensitively and anchored at the start of
// the value; a pattern that fails to compile degrades to a
// case-insensitive substring containment test so matching never aborts
// message processing.
type patternMatcher struct {
	re      *regexp.Regexp
	literal string
}

func compilePattern(pattern string) *patternMatcher {
	re, err := regexp.Compile("(?i)^(?:" + pattern + ")")
	if err != nil {
		return &patternMatcher{literal: strings.ToLower(pattern)}
	}
	return &patternMatcher{re: re}
}

func (p *patternMatcher) match(value string) bool {
	if p.re != nil {
		return p.re.MatchString(value)
	}
	return strings.Contains(strings.ToLower(value), p.literal)
}

// RuleMatcher evaluates the configured rule list against messages. The
// rule slice must already be filtered to enabled rules and sorted by
// descending priority with declaration order preserved on ties; that
// ordering is computed once at config load so first-match selection is
// deterministic across messages.
type RuleMatcher struct {
	rules    []Rule
	patterns map[string]*patternMatcher
	logger   *zap.Logger
}

// NewRuleMatcher creates a matcher over a pre-sorted rule list. All
// patterns are compiled up front; malformed ones are logged and fall
// back to substring matching.
func NewRuleMatcher(rules []Rule, logger *zap.Logger) *RuleMatcher {
	m := &RuleMatcher{
		rules:    rules,
		patterns: make(map[string]*patternMatcher),
		logger:   logger,
	}
	for i := range rules {
		m.compile(rules[i].SenderPattern)
		if rules[i].RecipientFilter != "" {
			m.compile(rules[i].RecipientFilter)
		}
		for _, pattern := range rules[i].HeadersMatch {
			m.compile(pattern)
		}
	}
	return m
}

func (m *RuleMatcher) compile(pattern string) {
	if _, ok := m.patterns[pattern]; ok {
		return
	}
	compiled := compilePattern(pattern)
	if compiled.re == nil {
		m.logger.Warn("Invalid rule pattern, falling back to substring match",
			zap.String("pattern", pattern))
	}
	m.patterns[pattern] = compiled
}

func (m *RuleMatcher) matchValue(value, pattern string) bool {
	compiled, ok := m.patterns[pattern]
	if !ok {
		// Pattern not seen at load time (direct API use); compile ad hoc.
		compiled = compilePattern(pattern)
	}
	return compiled.match(value)
}

// Match returns the first rule whose predicate holds for the message,
// in priority order. A matching rule with action "skip" stops evaluation
// and yields a skip outcome instead of a selection.
func (m *RuleMatcher) Match(msg *Message) MatchOutcome {
	for i := range m.rules {
		rule := &m.rules[i]
		if !m.ruleMatches(msg, rule) {
			continue
		}
		if rule.IsSkip() {
			return MatchOutcome{Skipped: true}
		}
		return MatchOutcome{Rule: rule}
	}
	return MatchOutcome{}
}

// MatchAll returns every non-skip rule whose predicate holds, in
// priority order. It exists for diagnostics (rule-check) and does not
// affect the first-match delivery contract.
func (m *RuleMatcher) MatchAll(msg *Message) []*Rule {
	var matched []*Rule
	for i := range m.rules {
		rule := &m.rules[i]
		if m.ruleMatches(msg, rule) && !rule.IsSkip() {
			matched = append(matched, rule)
		}
	}
	return matched
}

// ruleMatches evaluates a rule's predicate conjunctively: sender pattern,
// then the optional recipient filter over To plus Cc, then every
// configured header constraint (missing headers match against "").
func (m *RuleMatcher) ruleMatches(msg *Message, rule *Rule) bool {
	if !m.matchValue(msg.From, rule.SenderPattern) {
		return false
	}

	if rule.RecipientFilter != "" {
		if !m.matchesAnyRecipient(msg, rule.RecipientFilter) {
			return false
		}
	}

	for header, pattern := range rule.HeadersMatch {
		if !m.matchValue(msg.Headers[header], pattern) {
			return false
		}
	}

	return true
}

func (m *RuleMatcher) matchesAnyRecipient(msg *Message, filter string) bool {
	for _, recipient := range msg.To {
		if m.matchValue(recipient, filter) {
			return true
		}
	}
	for _, recipient := range msg.Cc {
		if m.matchValue(recipient, filter) {
			return true
		}
	}
	return false
}
