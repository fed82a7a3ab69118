// File: internal/infra/db/postgres/session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
	"chat-continuity/internal/domain/ports/repository"
	"chat-continuity/internal/infra/metrics"
	red "chat-continuity/internal/infra/redis"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// executor matches the subset of pgxpool.Pool the repo needs. Keeps the door
// open for running the same statements inside a transaction.
type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// SessionRepo stores one JSONB conversation document per user, addressed by
// user_id for both lookup and upsert. Decoded documents are validated before
// they are handed to callers; a document that fails validation surfaces as
// domain.ErrMalformedDocument, never as an empty history.
type SessionRepo struct {
	db    executor
	cache *red.SessionCache
}

func NewSessionRepo(pool *pgxpool.Pool, cache *red.SessionCache) *SessionRepo {
	return &SessionRepo{db: pool, cache: cache}
}

func (r *SessionRepo) FindByUser(ctx context.Context, userID string) (*model.ConversationSession, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if r.cache != nil {
		if s, err := r.cache.GetSession(ctx, userID); err == nil {
			metrics.IncCacheRequest("session", "hit")
			return s, nil
		}
		metrics.IncCacheRequest("session", "miss")
	}

	const q = `SELECT doc FROM conversation_sessions WHERE user_id = $1;`
	start := time.Now()
	var raw []byte
	err := r.db.QueryRow(ctx, q, userID).Scan(&raw)
	metrics.ObserveStoreOp("find", err == nil || err == pgx.ErrNoRows, time.Since(start))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	s, err := decodeSession(raw, userID)
	if err != nil {
		return nil, err
	}
	// cache best-effort
	if r.cache != nil {
		_ = r.cache.StoreSession(ctx, s)
	}
	return s, nil
}

func (r *SessionRepo) Upsert(ctx context.Context, session *model.ConversationSession) error {
	if session == nil {
		return domain.ErrInvalidArgument
	}
	if err := session.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	const q = `
INSERT INTO conversation_sessions (user_id, doc, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
  doc = EXCLUDED.doc,
  updated_at = EXCLUDED.updated_at;`
	start := time.Now()
	tag, err := r.db.Exec(ctx, q, session.UserID, raw, session.UpdatedAt)
	metrics.ObserveStoreOp("upsert", err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("upsert session: %d rows affected", tag.RowsAffected())
	}

	if r.cache != nil {
		_ = r.cache.StoreSession(ctx, session)
	}
	return nil
}

func decodeSession(raw []byte, userID string) (*model.ConversationSession, error) {
	var s model.ConversationSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	if s.UserID != userID {
		return nil, fmt.Errorf("%w: document holds userId %q, looked up %q", domain.ErrMalformedDocument, s.UserID, userID)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
