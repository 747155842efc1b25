package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMatchFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Name: "boss", SenderPattern: "boss@corp\\.com", Priority: 10},
		{Name: "catch-all", SenderPattern: ".*", Priority: 0},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	outcome := m.Match(&Message{From: "boss@corp.com"})
	require.True(t, outcome.Matched())
	assert.Equal(t, "boss", outcome.Rule.Name)

	outcome = m.Match(&Message{From: "someone@else.org"})
	require.True(t, outcome.Matched())
	assert.Equal(t, "catch-all", outcome.Rule.Name)
}

func TestMatchNoRule(t *testing.T) {
	rules := []Rule{
		{Name: "boss", SenderPattern: "boss@corp\\.com"},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	outcome := m.Match(&Message{From: "nobody@example.com"})
	assert.False(t, outcome.Matched())
	assert.False(t, outcome.Skipped)
}

func TestMatchSkipRuleStopsEvaluation(t *testing.T) {
	rules := []Rule{
		{Name: "mute internal", SenderPattern: ".*@corp\\.com", Action: "skip", Priority: 100},
		{Name: "catch-all", SenderPattern: ".*", Priority: 0},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	outcome := m.Match(&Message{From: "boss@corp.com"})
	assert.True(t, outcome.Skipped)
	assert.Nil(t, outcome.Rule)

	// Senders outside the skip rule still fall through to the catch-all.
	outcome = m.Match(&Message{From: "alice@example.com"})
	require.True(t, outcome.Matched())
	assert.Equal(t, "catch-all", outcome.Rule.Name)
}

func TestMatchSenderAnchoredCaseInsensitive(t *testing.T) {
	rules := []Rule{
		{Name: "r", SenderPattern: "boss@corp\\.com"},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	assert.True(t, m.Match(&Message{From: "BOSS@CORP.COM"}).Matched())
	// Anchored at the start, so a prefix does not match.
	assert.False(t, m.Match(&Message{From: "not-boss@corp.com"}).Matched())
	// The anchor is only at the start; trailing text still matches.
	assert.True(t, m.Match(&Message{From: "boss@corp.com.evil.org"}).Matched())
}

func TestMatchMalformedPatternFallsBackToSubstring(t *testing.T) {
	rules := []Rule{
		{Name: "broken", SenderPattern: "[unclosed"},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	assert.True(t, m.Match(&Message{From: "mail-[UNCLOSED-list@example.com"}).Matched())
	assert.False(t, m.Match(&Message{From: "alice@example.com"}).Matched())
}

func TestMatchRecipientFilter(t *testing.T) {
	rules := []Rule{
		{Name: "support", SenderPattern: ".*", RecipientFilter: "support@example\\.com"},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	tests := []struct {
		name string
		msg  *Message
		want bool
	}{
		{
			name: "recipient in To",
			msg:  &Message{From: "a@b.c", To: []string{"support@example.com"}},
			want: true,
		},
		{
			name: "recipient in Cc",
			msg:  &Message{From: "a@b.c", To: []string{"other@example.com"}, Cc: []string{"support@example.com"}},
			want: true,
		},
		{
			name: "recipient absent",
			msg:  &Message{From: "a@b.c", To: []string{"sales@example.com"}},
			want: false,
		},
		{
			name: "no recipients at all",
			msg:  &Message{From: "a@b.c"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.msg).Matched())
		})
	}
}

func TestMatchHeaderConstraints(t *testing.T) {
	rules := []Rule{
		{
			Name:          "urgent",
			SenderPattern: ".*",
			HeadersMatch: map[string]string{
				"X-Priority": "[12]",
				"X-Origin":   "crm",
			},
		},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	match := m.Match(&Message{
		From:    "a@b.c",
		Headers: map[string]string{"X-Priority": "1", "X-Origin": "CRM"},
	})
	assert.True(t, match.Matched())

	// All header constraints must hold.
	match = m.Match(&Message{
		From:    "a@b.c",
		Headers: map[string]string{"X-Priority": "1"},
	})
	assert.False(t, match.Matched())

	// Missing headers are matched against the empty string.
	match = m.Match(&Message{From: "a@b.c"})
	assert.False(t, match.Matched())
}

func TestMatchAllReturnsEveryNonSkipMatch(t *testing.T) {
	rules := []Rule{
		{Name: "mute", SenderPattern: "boss@.*", Action: "skip", Priority: 50},
		{Name: "boss", SenderPattern: "boss@corp\\.com", Priority: 10},
		{Name: "catch-all", SenderPattern: ".*", Priority: 0},
	}
	m := NewRuleMatcher(rules, zap.NewNop())

	matches := m.MatchAll(&Message{From: "boss@corp.com"})
	require.Len(t, matches, 2)
	assert.Equal(t, "boss", matches[0].Name)
	assert.Equal(t, "catch-all", matches[1].Name)
}

func TestMatchAllOmitsSkipRuleThatWinsMatch(t *testing.T) {
	rules := []Rule{
		{Name: "mute", SenderPattern: "boss@.*", Action: "skip", Priority: 50},
		{Name: "catch-all", SenderPattern: ".*", Priority: 0},
	}
	m := NewRuleMatcher(rules, zap.NewNop())
	msg := &Message{From: "boss@corp.com"}

	// The operative outcome is the skip rule; MatchAll only lists
	// non-skip candidates, so diagnostics must consult both.
	outcome := m.Match(msg)
	assert.True(t, outcome.Skipped)

	matches := m.MatchAll(msg)
	require.Len(t, matches, 1)
	assert.Equal(t, "catch-all", matches[0].Name)
}

func TestMatchIsDeterministic(t *testing.T) {
	rules := []Rule{
		{Name: "a", SenderPattern: ".*", Priority: 5},
		{Name: "b", SenderPattern: ".*", Priority: 5},
	}
	m := NewRuleMatcher(rules, zap.NewNop())
	msg := &Message{From: "alice@example.com"}

	for i := 0; i < 20; i++ {
		outcome := m.Match(msg)
		require.True(t, outcome.Matched())
		assert.Equal(t, "a", outcome.Rule.Name)
	}
}
