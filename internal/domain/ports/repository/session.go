package repository

import (
	"context"

	"chat-continuity/internal/domain/model"
)

// -----------------------------
// Conversation Sessions
// -----------------------------

// SessionRepository persists exactly one conversation document per user.
//
// FindByUser distinguishes genuine absence (domain.ErrNotFound) and documents
// that fail validation (domain.ErrMalformedDocument) from transient store
// faults, which surface as wrapped driver errors. Upsert replaces the whole
// document in a single write; there is no partial update.
type SessionRepository interface {
	FindByUser(ctx context.Context, userID string) (*model.ConversationSession, error)
	Upsert(ctx context.Context, session *model.ConversationSession) error
}
