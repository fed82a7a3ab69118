//go:build !integration

package postgres

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
)

func TestDecodeSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := func() *model.ConversationSession {
		s := model.NewConversationSession("u1", now)
		s.AppendMessage(model.RoleUser, "How do I cook pasta?", now.Add(time.Second))
		s.AppendMessage(model.RoleAssistant, "Boil water first.", now.Add(2*time.Second))
		return s
	}

	t.Run("valid document round-trips", func(t *testing.T) {
		raw, err := json.Marshal(valid())
		if err != nil {
			t.Fatal(err)
		}
		s, err := decodeSession(raw, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.ID != "u1" || s.UserID != "u1" {
			t.Errorf("key fields corrupted: id=%q userId=%q", s.ID, s.UserID)
		}
		if len(s.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(s.Messages))
		}
		if !s.Messages[0].Timestamp.Equal(now.Add(time.Second)) {
			t.Errorf("timestamp not preserved: %v", s.Messages[0].Timestamp)
		}
	})

	t.Run("document shape uses the expected field names", func(t *testing.T) {
		raw, err := json.Marshal(valid())
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatal(err)
		}
		for _, key := range []string{"id", "userId", "messages", "createdAt", "updatedAt"} {
			if _, ok := doc[key]; !ok {
				t.Errorf("persisted document missing %q", key)
			}
		}
	})

	t.Run("garbage bytes", func(t *testing.T) {
		if _, err := decodeSession([]byte("{not json"), "u1"); !errors.Is(err, domain.ErrMalformedDocument) {
			t.Errorf("expected ErrMalformedDocument, got %v", err)
		}
	})

	t.Run("document for a different user", func(t *testing.T) {
		raw, _ := json.Marshal(valid())
		if _, err := decodeSession(raw, "someone-else"); !errors.Is(err, domain.ErrMalformedDocument) {
			t.Errorf("expected ErrMalformedDocument, got %v", err)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		s := valid()
		s.Messages[0].Role = "tool"
		raw, _ := json.Marshal(s)
		if _, err := decodeSession(raw, "u1"); !errors.Is(err, domain.ErrMalformedDocument) {
			t.Errorf("expected ErrMalformedDocument, got %v", err)
		}
	})

	t.Run("missing message timestamp", func(t *testing.T) {
		raw := []byte(`{"id":"u1","userId":"u1",` +
			`"messages":[{"role":"user","content":"q"}],` +
			`"createdAt":"2025-03-01T12:00:00Z","updatedAt":"2025-03-01T12:00:01Z"}`)
		if _, err := decodeSession(raw, "u1"); !errors.Is(err, domain.ErrMalformedDocument) {
			t.Errorf("expected ErrMalformedDocument, got %v", err)
		}
	})

	t.Run("id and userId diverge", func(t *testing.T) {
		raw := []byte(`{"id":"other","userId":"u1","messages":[],` +
			`"createdAt":"2025-03-01T12:00:00Z","updatedAt":"2025-03-01T12:00:00Z"}`)
		if _, err := decodeSession(raw, "u1"); !errors.Is(err, domain.ErrMalformedDocument) {
			t.Errorf("expected ErrMalformedDocument, got %v", err)
		}
	})
}
