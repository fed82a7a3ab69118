package model

import (
	"fmt"
	"time"

	"chat-continuity/internal/domain"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one utterance inside a conversation. Timestamps are assigned by
// the recorder, always UTC, and serialize to RFC 3339 in the stored document.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSession is the aggregate root: the full persisted conversation
// for one user. ID and UserID always hold the same value — the document key
// doubles as the partition key of the external store.
type ConversationSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewConversationSession(userID string, now time.Time) *ConversationSession {
	return &ConversationSession{
		ID:        userID,
		UserID:    userID,
		Messages:  make([]Message, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ConversationSession) AppendMessage(role Role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// RecentWindow returns the last n messages in chronological order. Short
// histories return everything available; the result is never padded.
func (s *ConversationSession) RecentWindow(n int) []Message {
	if s == nil || n <= 0 {
		return nil
	}
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Validate rejects documents that violate the persisted-shape invariants.
// Called at the store boundary so a malformed document never reaches the
// classifier as if it were real history.
func (s *ConversationSession) Validate() error {
	if s.ID == "" || s.ID != s.UserID {
		return fmt.Errorf("%w: id %q and userId %q must be equal and non-empty", domain.ErrMalformedDocument, s.ID, s.UserID)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", domain.ErrMalformedDocument)
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return fmt.Errorf("%w: updatedAt precedes createdAt", domain.ErrMalformedDocument)
	}
	for i, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", domain.ErrMalformedDocument, i, m.Role)
		}
		if m.Timestamp.IsZero() {
			return fmt.Errorf("%w: message %d has no timestamp", domain.ErrMalformedDocument, i)
		}
	}
	return nil
}
