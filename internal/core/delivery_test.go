package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSender struct {
	id    string
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, reply *GeneratedReply) (string, error) {
	s.calls++
	return s.id, s.err
}

type stubDrafts struct {
	id    string
	err   error
	calls int
}

func (d *stubDrafts) SaveDraft(ctx context.Context, reply *GeneratedReply) (string, error) {
	d.calls++
	return d.id, d.err
}

func TestDeliverSend(t *testing.T) {
	sender := &stubSender{id: "<new@example.com>"}
	drafts := &stubDrafts{}
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return sender, nil },
		func() (DraftSaver, error) { return drafts, nil },
		zap.NewNop(),
	)

	outcome := router.Deliver(context.Background(), &GeneratedReply{ToAddress: "a@b.c"}, ModeSend)
	assert.True(t, outcome.Success)
	assert.Equal(t, ModeSend, outcome.Mode)
	assert.Equal(t, "<new@example.com>", outcome.MessageID)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, 0, drafts.calls)
}

func TestDeliverDraft(t *testing.T) {
	sender := &stubSender{}
	drafts := &stubDrafts{id: "<draft@example.com>"}
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return sender, nil },
		func() (DraftSaver, error) { return drafts, nil },
		zap.NewNop(),
	)

	outcome := router.Deliver(context.Background(), &GeneratedReply{}, ModeDraft)
	assert.True(t, outcome.Success)
	assert.Equal(t, ModeDraft, outcome.Mode)
	assert.Equal(t, "<draft@example.com>", outcome.MessageID)
	assert.Equal(t, 0, sender.calls)
	assert.Equal(t, 1, drafts.calls)
}

func TestDeliverFailureIsData(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return sender, nil },
		func() (DraftSaver, error) { return &stubDrafts{}, nil },
		zap.NewNop(),
	)

	outcome := router.Deliver(context.Background(), &GeneratedReply{}, ModeSend)
	assert.False(t, outcome.Success)
	assert.Equal(t, ModeSend, outcome.Mode)
	assert.Empty(t, outcome.MessageID)
	assert.Contains(t, outcome.Error, "connection refused")
}

func TestDeliverUnknownMode(t *testing.T) {
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return &stubSender{}, nil },
		func() (DraftSaver, error) { return &stubDrafts{}, nil },
		zap.NewNop(),
	)

	outcome := router.Deliver(context.Background(), &GeneratedReply{}, DeliveryMode("forward"))
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "unknown delivery mode")
}

func TestDeliverConstructsSinkOnce(t *testing.T) {
	built := 0
	sender := &stubSender{id: "<x@y>"}
	router := NewDeliveryRouter(
		func() (MessageSender, error) {
			built++
			return sender, nil
		},
		func() (DraftSaver, error) { return &stubDrafts{}, nil },
		zap.NewNop(),
	)

	for i := 0; i < 3; i++ {
		outcome := router.Deliver(context.Background(), &GeneratedReply{}, ModeSend)
		require.True(t, outcome.Success)
	}
	assert.Equal(t, 1, built)
	assert.Equal(t, 3, sender.calls)
}

func TestDeliverSinkConstructionFailure(t *testing.T) {
	router := NewDeliveryRouter(
		func() (MessageSender, error) { return nil, errors.New("bad smtp config") },
		func() (DraftSaver, error) { return &stubDrafts{}, nil },
		zap.NewNop(),
	)

	outcome := router.Deliver(context.Background(), &GeneratedReply{}, ModeSend)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "bad smtp config")
}
