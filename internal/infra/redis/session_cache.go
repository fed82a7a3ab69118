package redis

import (
	"context"
	"encoding/json"
	"time"

	"chat-continuity/internal/domain/model"
)

// SessionCache keeps the serialized conversation document hot so the
// classifier's short window reads can skip the document store. Entries are
// refreshed on every upsert; a decode or validation failure is reported as
// an error and the caller falls back to the store.
type SessionCache struct {
	client *Client
	ttl    time.Duration
}

func NewSessionCache(client *Client, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *SessionCache) StoreSession(ctx context.Context, session *model.ConversationSession) error {
	key := "conversation:" + session.UserID
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl)
}

func (c *SessionCache) GetSession(ctx context.Context, userID string) (*model.ConversationSession, error) {
	key := "conversation:" + userID
	data, err := c.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var session model.ConversationSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SessionCache) DeleteSession(ctx context.Context, userID string) error {
	return c.client.Del(ctx, "conversation:"+userID)
}

func (c *SessionCache) ExtendSession(ctx context.Context, userID string) error {
	return c.client.Expire(ctx, "conversation:"+userID, c.ttl)
}
