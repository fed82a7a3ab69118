package ai

import (
	"context"
	"time"

	"chat-continuity/internal/domain/ports/adapter"
)

var _ adapter.ReplyGenerator = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.ReplyGenerator for local/dev runs. It
// echoes the question instead of calling a real provider.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{}
}

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-ai-model"}, nil
}

func (a *NoopAIAdapter) Reply(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if len(messages) == 0 {
		return "This is a noop AI response.", nil
	}
	return "AI response to: " + messages[len(messages)-1].Content, nil
}
