package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHistory struct {
	count    int
	countErr error
	recorded []string
}

func (h *stubHistory) Count(ctx context.Context, sender string, window time.Duration) (int, error) {
	return h.count, h.countErr
}

func (h *stubHistory) Record(ctx context.Context, sender string) error {
	h.recorded = append(h.recorded, sender)
	return nil
}

func newTestService(t *testing.T, provider *stubProvider, sender *stubSender, history ReplyHistory, limit RateLimit) *Service {
	t.Helper()

	rules := []Rule{
		{Name: "mute internal", SenderPattern: ".*@internal\\.corp\\.com", Action: "skip", Priority: 100},
		{Name: "boss", SenderPattern: "boss@corp\\.com", LLMProvider: provider.name, DeliveryMode: "send", SystemPrompt: "be brief", Priority: 10},
	}

	logger := zap.NewNop()
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return sender, nil },
		func() (DraftSaver, error) { return &stubDrafts{id: "<draft@x>"}, nil },
		logger,
	)

	return NewService(
		NewSkipGuard(),
		NewRuleMatcher(rules, logger),
		NewReplyGenerator(newStubRegistry(provider), "me@example.com", logger),
		router,
		history,
		limit,
		logger,
	)
}

func TestProcessHigherPriorityRuleBeatsSkipCatchAll(t *testing.T) {
	provider := &stubProvider{name: "stub", reply: "On it."}
	sender := &stubSender{id: "<out@example.com>"}

	// Matcher order, highest priority first: the boss rule outranks the
	// skip catch-all even though both match.
	rules := []Rule{
		{Name: "boss", SenderPattern: "boss@.*", LLMProvider: "stub", DeliveryMode: "send", Priority: 10},
		{Name: "catch-all", SenderPattern: ".*", Action: "skip", Priority: 0},
	}

	logger := zap.NewNop()
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return sender, nil },
		func() (DraftSaver, error) { return &stubDrafts{}, nil },
		logger,
	)
	svc := NewService(
		NewSkipGuard(),
		NewRuleMatcher(rules, logger),
		NewReplyGenerator(newStubRegistry(provider), "me@example.com", logger),
		router,
		nil,
		RateLimit{},
		logger,
	)

	result := svc.Process(context.Background(), &Message{From: "boss@corp.com", Subject: "Status?"}, false)
	require.Equal(t, StatusDelivered, result.Status)
	assert.Equal(t, "boss", result.Rule.Name)
	assert.Equal(t, "Re: Status?", result.Reply.Subject)
	assert.Equal(t, 1, sender.calls)
}

func TestProcessDelivers(t *testing.T) {
	provider := &stubProvider{name: "openai", reply: "On it."}
	sender := &stubSender{id: "<out@example.com>"}
	history := &stubHistory{}
	svc := newTestService(t, provider, sender, history, RateLimit{Enabled: true, MaxReplies: 5, Window: time.Hour})

	msg := &Message{
		MessageID: "<orig@corp.com>",
		From:      "boss@corp.com",
		To:        []string{"me@example.com"},
		Subject:   "Status?",
		Body:      "Where are we on the launch?",
	}

	result := svc.Process(context.Background(), msg, false)
	require.Equal(t, StatusDelivered, result.Status)
	require.NotNil(t, result.Rule)
	assert.Equal(t, "boss", result.Rule.Name)
	require.NotNil(t, result.Reply)
	assert.Equal(t, "Re: Status?", result.Reply.Subject)
	require.NotNil(t, result.Delivery)
	assert.True(t, result.Delivery.Success)
	assert.Equal(t, "<out@example.com>", result.Delivery.MessageID)
	assert.Equal(t, []string{"boss@corp.com"}, history.recorded)
}

func TestProcessSkipsNoReplySenderWithoutProviderCall(t *testing.T) {
	provider := &stubProvider{name: "openai"}
	sender := &stubSender{}
	svc := newTestService(t, provider, sender, nil, RateLimit{})

	result := svc.Process(context.Background(), &Message{From: "noreply@corp.com"}, false)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.NotEmpty(t, result.Reason)
	assert.Equal(t, 0, provider.calls)
	assert.Equal(t, 0, sender.calls)
}

func TestProcessSkipRule(t *testing.T) {
	provider := &stubProvider{name: "openai"}
	sender := &stubSender{}
	svc := newTestService(t, provider, sender, nil, RateLimit{})

	result := svc.Process(context.Background(), &Message{From: "hr@internal.corp.com"}, false)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Equal(t, 0, provider.calls)
}

func TestProcessNoMatch(t *testing.T) {
	provider := &stubProvider{name: "openai"}
	svc := newTestService(t, provider, &stubSender{}, nil, RateLimit{})

	result := svc.Process(context.Background(), &Message{From: "stranger@example.com"}, false)
	assert.Equal(t, StatusNoMatch, result.Status)
	assert.Equal(t, 0, provider.calls)
}

func TestProcessRateLimited(t *testing.T) {
	provider := &stubProvider{name: "openai"}
	history := &stubHistory{count: 5}
	svc := newTestService(t, provider, &stubSender{}, history,
		RateLimit{Enabled: true, MaxReplies: 5, Window: time.Hour})

	result := svc.Process(context.Background(), &Message{From: "boss@corp.com"}, false)
	assert.Equal(t, StatusRateLimited, result.Status)
	assert.Equal(t, 0, provider.calls)
	assert.Empty(t, history.recorded)
}

func TestProcessHistoryFailureDoesNotBlock(t *testing.T) {
	provider := &stubProvider{name: "openai", reply: "ok"}
	history := &stubHistory{countErr: errors.New("db gone")}
	svc := newTestService(t, provider, &stubSender{id: "<x@y>"}, history,
		RateLimit{Enabled: true, MaxReplies: 1, Window: time.Hour})

	result := svc.Process(context.Background(), &Message{From: "boss@corp.com"}, false)
	assert.Equal(t, StatusDelivered, result.Status)
}

func TestProcessDryRunStopsBeforeDelivery(t *testing.T) {
	provider := &stubProvider{name: "openai", reply: "draft text"}
	sender := &stubSender{}
	history := &stubHistory{}
	svc := newTestService(t, provider, sender, history, RateLimit{Enabled: true, MaxReplies: 5, Window: time.Hour})

	result := svc.Process(context.Background(), &Message{From: "boss@corp.com", Subject: "hi"}, true)
	require.Equal(t, StatusDryRun, result.Status)
	require.NotNil(t, result.Reply)
	assert.Equal(t, "draft text", result.Reply.Body)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 0, sender.calls)
	assert.Empty(t, history.recorded)
}

func TestProcessGenerationFailure(t *testing.T) {
	provider := &stubProvider{name: "openai", err: errors.New("model overloaded")}
	svc := newTestService(t, provider, &stubSender{}, nil, RateLimit{})

	result := svc.Process(context.Background(), &Message{From: "boss@corp.com"}, false)
	assert.Equal(t, StatusGenerationFailed, result.Status)
	assert.Contains(t, result.Reason, "model overloaded")
}

func TestProcessDeliveryFailure(t *testing.T) {
	provider := &stubProvider{name: "openai", reply: "ok"}
	sender := &stubSender{err: errors.New("relay down")}
	history := &stubHistory{}
	svc := newTestService(t, provider, sender, history, RateLimit{Enabled: true, MaxReplies: 5, Window: time.Hour})

	result := svc.Process(context.Background(), &Message{From: "boss@corp.com"}, false)
	assert.Equal(t, StatusDeliveryFailed, result.Status)
	require.NotNil(t, result.Delivery)
	assert.False(t, result.Delivery.Success)
	// Failed deliveries do not count against the sender's limit.
	assert.Empty(t, history.recorded)
}
