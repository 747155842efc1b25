package core

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DeliveryRouter dispatches generated replies to the SMTP sender or the
// IMAP drafts handler. Each sink is constructed lazily, exactly once per
// process, and reused across calls; construction is guarded so
// concurrent first use cannot build duplicates. Sink failures never
// propagate past this boundary: every call returns a DeliveryOutcome.
type DeliveryRouter struct {
	newSender func() (MessageSender, error)
	newDrafts func() (DraftSaver, error)
	logger    *zap.Logger

	senderOnce sync.Once
	sender     MessageSender
	senderErr  error

	draftsOnce sync.Once
	drafts     DraftSaver
	draftsErr  error
}

// NewDeliveryRouter creates a router over the given sink constructors.
func NewDeliveryRouter(
	newSender func() (MessageSender, error),
	newDrafts func() (DraftSaver, error),
	logger *zap.Logger,
) *DeliveryRouter {
	return &DeliveryRouter{
		newSender: newSender,
		newDrafts: newDrafts,
		logger:    logger,
	}
}

// Deliver routes the reply to the sink for mode. A failed send never
// falls back to a draft, and vice versa.
func (r *DeliveryRouter) Deliver(ctx context.Context, reply *GeneratedReply, mode DeliveryMode) DeliveryOutcome {
	var messageID string
	var err error

	switch mode {
	case ModeSend:
		messageID, err = r.send(ctx, reply)
	case ModeDraft:
		messageID, err = r.saveDraft(ctx, reply)
	default:
		err = fmt.Errorf("unknown delivery mode: %q", mode)
	}

	if err != nil {
		r.logger.Error("Delivery failed",
			zap.String("mode", string(mode)),
			zap.String("to", reply.ToAddress),
			zap.Error(err))
		return DeliveryOutcome{
			Success: false,
			Mode:    mode,
			Error:   err.Error(),
		}
	}

	return DeliveryOutcome{
		Success:   true,
		Mode:      mode,
		MessageID: messageID,
	}
}

func (r *DeliveryRouter) send(ctx context.Context, reply *GeneratedReply) (string, error) {
	r.senderOnce.Do(func() {
		r.sender, r.senderErr = r.newSender()
	})
	if r.senderErr != nil {
		return "", fmt.Errorf("sender unavailable: %w", r.senderErr)
	}
	return r.sender.Send(ctx, reply)
}

func (r *DeliveryRouter) saveDraft(ctx context.Context, reply *GeneratedReply) (string, error) {
	r.draftsOnce.Do(func() {
		r.drafts, r.draftsErr = r.newDrafts()
	})
	if r.draftsErr != nil {
		return "", fmt.Errorf("drafts handler unavailable: %w", r.draftsErr)
	}
	return r.drafts.SaveDraft(ctx, reply)
}
