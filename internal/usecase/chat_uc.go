// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
	"chat-continuity/internal/domain/ports/adapter"
)

// TurnResult is what HandleMessage hands back to the transport layer.
type TurnResult struct {
	Reply    string
	FollowUp bool
	Saved    bool
}

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

type ChatUseCase interface {
	// HandleMessage runs the full flow: classify the question, generate a
	// reply (with recent context when it is a follow-up), record the turn.
	// A persistence failure never withholds the reply; the caller just sees
	// Saved == false.
	HandleMessage(ctx context.Context, userID, question string) (*TurnResult, error)
}

type chatUC struct {
	history   HistoryUseCase
	generator adapter.ReplyGenerator
	modelName string
	ctxWindow int
	log       *zerolog.Logger
}

func NewChatUseCase(history HistoryUseCase, generator adapter.ReplyGenerator, modelName string, contextWindow int, logger *zerolog.Logger) *chatUC {
	if contextWindow <= 0 {
		contextWindow = 5
	}
	return &chatUC{
		history:   history,
		generator: generator,
		modelName: modelName,
		ctxWindow: contextWindow,
		log:       logger,
	}
}

func (c *chatUC) HandleMessage(ctx context.Context, userID, question string) (*TurnResult, error) {
	question = strings.TrimSpace(question)
	if userID == "" || question == "" {
		return nil, domain.ErrInvalidArgument
	}

	followup, err := c.history.IsFollowUp(ctx, userID, question)
	if err != nil {
		return nil, err
	}

	var msgs []adapter.Message
	if followup {
		recent, err := c.history.RecentMessages(ctx, userID, c.ctxWindow)
		if err != nil {
			return nil, err
		}
		for _, m := range recent {
			msgs = append(msgs, adapter.Message{Role: string(m.Role), Content: m.Content})
		}
	}
	msgs = append(msgs, adapter.Message{Role: string(model.RoleUser), Content: question})

	reply, err := c.generator.Reply(ctx, c.modelName, msgs)
	if err != nil {
		return nil, err
	}

	res := &TurnResult{Reply: reply, FollowUp: followup, Saved: true}
	if err := c.history.RecordTurn(ctx, userID, question, reply); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("reply delivered, turn not saved")
		res.Saved = false
	}
	return res, nil
}
