//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Integration tests need a live database; run with
		// DATABASE_URL=postgres://... go test -tags integration ./...
		os.Exit(0)
	}
	ctx := context.Background()
	pool, err := NewPgxPool(ctx, dsn, 4)
	if err != nil {
		panic(err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		panic(err)
	}
	testPool = pool
	code := m.Run()
	pool.Close()
	os.Exit(code)
}

func cleanup(t *testing.T, userID string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `DELETE FROM conversation_sessions WHERE user_id=$1;`, userID)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestSessionRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(testPool, nil)
	cleanup(t, "it-u1")
	defer cleanup(t, "it-u1")

	now := time.Now().UTC().Truncate(time.Millisecond)
	s := model.NewConversationSession("it-u1", now)
	s.AppendMessage(model.RoleUser, "How do I cook pasta?", now.Add(time.Second))
	s.AppendMessage(model.RoleAssistant, "Boil water first.", now.Add(2*time.Second))

	if err := repo.Upsert(ctx, s); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := repo.FindByUser(ctx, "it-u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "it-u1" || got.UserID != "it-u1" {
		t.Errorf("key fields: id=%q userId=%q", got.ID, got.UserID)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "How do I cook pasta?" {
		t.Errorf("content: %q", got.Messages[0].Content)
	}

	// Upsert replaces the whole document.
	s.AppendMessage(model.RoleUser, "What about the cooking time?", now.Add(3*time.Second))
	s.AppendMessage(model.RoleAssistant, "About ten minutes.", now.Add(4*time.Second))
	if err := repo.Upsert(ctx, s); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err = repo.FindByUser(ctx, "it-u1")
	if err != nil {
		t.Fatalf("find after replace: %v", err)
	}
	if len(got.Messages) != 4 {
		t.Errorf("expected replaced document with 4 messages, got %d", len(got.Messages))
	}
}

func TestSessionRepo_NotFound(t *testing.T) {
	repo := NewSessionRepo(testPool, nil)
	_, err := repo.FindByUser(context.Background(), "it-nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepo_MalformedDocument(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(testPool, nil)
	cleanup(t, "it-bad")
	defer cleanup(t, "it-bad")

	// Plant a document that no valid writer would produce.
	_, err := testPool.Exec(ctx, `
INSERT INTO conversation_sessions (user_id, doc, updated_at)
VALUES ($1, $2::jsonb, NOW());`,
		"it-bad", `{"id":"mismatch","userId":"it-bad","messages":[],"createdAt":"2025-03-01T12:00:00Z","updatedAt":"2025-03-01T12:00:00Z"}`)
	if err != nil {
		t.Fatalf("plant: %v", err)
	}

	_, err = repo.FindByUser(ctx, "it-bad")
	if !errors.Is(err, domain.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}
