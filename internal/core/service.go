package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status classifies the outcome of processing one message. The binary
// maps it to a process exit code for the calling transport.
type Status int

const (
	// StatusDelivered means a rule matched and the reply was delivered.
	StatusDelivered Status = iota
	// StatusSkipped means the structural skip guard or a configured skip
	// rule suppressed the reply.
	StatusSkipped
	// StatusNoMatch means no enabled rule matched the message.
	StatusNoMatch
	// StatusRateLimited means the sender already received the configured
	// number of auto-replies within the window.
	StatusRateLimited
	// StatusDryRun means a reply was generated but delivery was skipped
	// on request.
	StatusDryRun
	// StatusGenerationFailed means provider resolution or generation
	// failed after a rule matched.
	StatusGenerationFailed
	// StatusDeliveryFailed means the delivery sink reported a failure.
	StatusDeliveryFailed
)

// Result carries everything the caller needs to report and to choose an
// exit code: the terminal status, a human-readable reason for skips and
// failures, and the intermediate artifacts that exist at that point.
type Result struct {
	Status   Status
	Reason   string
	Rule     *Rule
	Reply    *GeneratedReply
	Delivery *DeliveryOutcome
}

// RateLimit bounds how many auto-replies one sender may receive within a
// trailing window. A zero MaxReplies or Window disables the check.
type RateLimit struct {
	Enabled    bool
	MaxReplies int
	Window     time.Duration
}

// Service runs the fixed per-message pipeline: skip-check, rate-limit,
// rule match, generation, delivery. Steps are strictly sequential and
// share no mutable state, so one Service may serve concurrent messages.
type Service struct {
	guard     *SkipGuard
	matcher   *RuleMatcher
	generator *ReplyGenerator
	router    *DeliveryRouter
	history   ReplyHistory
	limit     RateLimit
	logger    *zap.Logger
}

// NewService creates the message-processing service. history may be nil
// when rate limiting is disabled.
func NewService(
	guard *SkipGuard,
	matcher *RuleMatcher,
	generator *ReplyGenerator,
	router *DeliveryRouter,
	history ReplyHistory,
	limit RateLimit,
	logger *zap.Logger,
) *Service {
	return &Service{
		guard:     guard,
		matcher:   matcher,
		generator: generator,
		router:    router,
		history:   history,
		limit:     limit,
		logger:    logger,
	}
}

// Process handles one message end to end. When dryRun is set the
// pipeline stops after generation. Process never panics and never
// returns an error for per-message failures; they are encoded in the
// Result status.
func (s *Service) Process(ctx context.Context, msg *Message, dryRun bool) Result {
	s.logger.Info("Message received",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))

	if skip, reason := s.guard.ShouldSkip(msg); skip {
		s.logger.Info("Skipping message", zap.String("reason", reason))
		return Result{Status: StatusSkipped, Reason: reason}
	}

	if limited, reason := s.rateLimited(ctx, msg.From); limited {
		s.logger.Info("Rate limit reached for sender",
			zap.String("sender", msg.From),
			zap.String("reason", reason))
		return Result{Status: StatusRateLimited, Reason: reason}
	}

	outcome := s.matcher.Match(msg)
	if outcome.Skipped {
		s.logger.Info("Skip rule matched", zap.String("sender", msg.From))
		return Result{Status: StatusSkipped, Reason: "matched a skip rule"}
	}
	if !outcome.Matched() {
		s.logger.Info("No matching rule found")
		return Result{Status: StatusNoMatch}
	}

	rule := outcome.Rule
	s.logger.Info("Rule matched",
		zap.String("rule", rule.Name),
		zap.String("provider", rule.LLMProvider),
		zap.String("mode", rule.DeliveryMode))

	reply, err := s.generator.Generate(ctx, msg, rule)
	if err != nil {
		s.logger.Error("Failed to generate reply",
			zap.String("rule", rule.Name),
			zap.String("provider", rule.LLMProvider),
			zap.Error(err))
		return Result{Status: StatusGenerationFailed, Reason: err.Error(), Rule: rule}
	}

	s.logger.Info("Reply generated",
		zap.String("to", reply.ToAddress),
		zap.String("subject", reply.Subject))

	if dryRun {
		s.logger.Info("Dry run, not delivering")
		return Result{Status: StatusDryRun, Rule: rule, Reply: reply}
	}

	mode, ok := ParseDeliveryMode(rule.DeliveryMode)
	if !ok {
		s.logger.Error("Rule has invalid delivery mode",
			zap.String("rule", rule.Name),
			zap.String("mode", rule.DeliveryMode))
		return Result{
			Status: StatusDeliveryFailed,
			Reason: "invalid delivery mode: " + rule.DeliveryMode,
			Rule:   rule,
			Reply:  reply,
		}
	}

	delivery := s.router.Deliver(ctx, reply, mode)
	if !delivery.Success {
		return Result{
			Status:   StatusDeliveryFailed,
			Reason:   delivery.Error,
			Rule:     rule,
			Reply:    reply,
			Delivery: &delivery,
		}
	}

	s.logger.Info("Reply delivered",
		zap.String("mode", string(delivery.Mode)),
		zap.String("message_id", delivery.MessageID))

	s.recordReply(ctx, msg.From)

	return Result{Status: StatusDelivered, Rule: rule, Reply: reply, Delivery: &delivery}
}

// rateLimited checks the reply history for the sender. History store
// failures are logged and treated as "not limited" so a broken store
// never blocks processing.
func (s *Service) rateLimited(ctx context.Context, sender string) (bool, string) {
	if !s.limit.Enabled || s.history == nil || s.limit.MaxReplies <= 0 || s.limit.Window <= 0 {
		return false, ""
	}
	count, err := s.history.Count(ctx, sender, s.limit.Window)
	if err != nil {
		s.logger.Warn("Reply history lookup failed", zap.Error(err))
		return false, ""
	}
	if count >= s.limit.MaxReplies {
		return true, "sender reached reply limit for the current window"
	}
	return false, ""
}

func (s *Service) recordReply(ctx context.Context, sender string) {
	if !s.limit.Enabled || s.history == nil {
		return
	}
	if err := s.history.Record(ctx, sender); err != nil {
		s.logger.Warn("Failed to record reply in history", zap.Error(err))
	}
}
