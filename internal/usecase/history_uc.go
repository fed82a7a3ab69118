// File: internal/usecase/history_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
	"chat-continuity/internal/domain/ports/repository"
	"chat-continuity/internal/infra/metrics"
)

// followupWindow is the hard recency gate: a last user message older than
// this can never be a follow-up, whatever the new question says.
const followupWindow = 1800 * time.Second

// classifierWindow is how many trailing messages the classifier inspects to
// find the last user message.
const classifierWindow = 3

// followupCues are matched as plain substrings against the lowered question.
// The list is deliberately broad and untokenized, so common words like "how"
// or "but" trigger it often. That imprecision is the documented behavior of
// this heuristic, not something to tighten.
var followupCues = []string{
	"and", "also", "what about", "how about", "tell me more",
	"explain", "why", "how", "continue", "more details",
	"but", "however", "what if", "can you", "please",
}

// Compile-time check
var _ HistoryUseCase = (*historyUC)(nil)

type HistoryUseCase interface {
	// RecordTurn appends one user/assistant message pair and persists the
	// whole session in a single upsert, creating the session on the first
	// turn. A nil return means the turn is durably saved; any error means it
	// is not, and the caller may retry or carry on without history.
	RecordTurn(ctx context.Context, userID, userMessage, assistantMessage string) error

	// IsFollowUp reports whether the question continues the prior exchange:
	// recent history must exist, the last user message must be younger than
	// 30 minutes, and the question must contain a lexical cue.
	IsFollowUp(ctx context.Context, userID, question string) (bool, error)

	// RecentMessages returns the last count messages in chronological order,
	// or everything available when the history is shorter. An absent session
	// yields an empty slice, not an error.
	RecentMessages(ctx context.Context, userID string, count int) ([]model.Message, error)
}

type historyUC struct {
	sessions repository.SessionRepository
	locker   repository.Locker // nil unless per-user serialization is enabled
	lockTTL  time.Duration
	log      *zerolog.Logger
	now      func() time.Time
}

func NewHistoryUseCase(sessions repository.SessionRepository, locker repository.Locker, lockTTL time.Duration, logger *zerolog.Logger) *historyUC {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &historyUC{
		sessions: sessions,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *historyUC) RecordTurn(ctx context.Context, userID, userMessage, assistantMessage string) error {
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	if h.locker != nil {
		token, err := h.locker.TryLock(ctx, turnLockKey(userID), h.lockTTL)
		if err != nil {
			metrics.IncTurnRecorded("failed")
			return err
		}
		defer func() { _ = h.locker.Unlock(ctx, turnLockKey(userID), token) }()
	}

	s, err := h.sessions.FindByUser(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		s = model.NewConversationSession(userID, h.now())
	default:
		// A fetch fault is a failed recording, not a fresh session: appending
		// onto a synthesized document could overwrite history that is still
		// in the store.
		metrics.IncTurnRecorded("failed")
		return fmt.Errorf("record turn: %w", err)
	}

	// The pair is appended as a unit; the two timestamps are taken
	// independently and are non-decreasing in append order.
	s.AppendMessage(model.RoleUser, userMessage, h.now())
	s.AppendMessage(model.RoleAssistant, assistantMessage, h.now())
	s.UpdatedAt = h.now()

	if err := h.sessions.Upsert(ctx, s); err != nil {
		metrics.IncTurnRecorded("failed")
		h.log.Error().Err(err).Str("user_id", userID).Msg("turn not saved")
		return fmt.Errorf("record turn: %w", err)
	}
	metrics.IncTurnRecorded("saved")
	return nil
}

func (h *historyUC) RecentMessages(ctx context.Context, userID string, count int) ([]model.Message, error) {
	s, err := h.sessions.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []model.Message{}, nil
		}
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return s.RecentWindow(count), nil
}

func (h *historyUC) IsFollowUp(ctx context.Context, userID, question string) (bool, error) {
	recent, err := h.RecentMessages(ctx, userID, classifierWindow)
	if err != nil {
		return false, err
	}
	if len(recent) == 0 {
		metrics.IncFollowupDecision("no_history")
		return false, nil
	}

	var lastUser *model.Message
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == model.RoleUser {
			lastUser = &recent[i]
			break
		}
	}
	if lastUser == nil {
		metrics.IncFollowupDecision("no_history")
		return false, nil
	}
	if lastUser.Timestamp.IsZero() {
		return false, fmt.Errorf("%w: last user message has no timestamp", domain.ErrMalformedDocument)
	}

	// Recency is a hard gate, checked before any lexical cue.
	if h.now().Sub(lastUser.Timestamp) > followupWindow {
		metrics.IncFollowupDecision("stale")
		return false, nil
	}

	lowered := strings.ToLower(question)
	for _, cue := range followupCues {
		if strings.Contains(lowered, cue) {
			metrics.IncFollowupDecision("followup")
			return true, nil
		}
	}
	metrics.IncFollowupDecision("new_topic")
	return false, nil
}

func turnLockKey(userID string) string { return "turn_lock:" + userID }
