// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"chat-continuity/internal/domain"
	"chat-continuity/internal/domain/model"
	"chat-continuity/internal/domain/ports/adapter"
	"chat-continuity/internal/domain/ports/repository"
)

// memSessionRepo is a small in-memory implementation used by unit tests. It
// hands out deep copies, like a real store: a caller holding a fetched
// session never sees writes made by anyone else.
type memSessionRepo struct {
	mu        sync.Mutex
	store     map[string]*model.ConversationSession
	findErr   error  // simulate a transient read fault
	upsertErr error  // simulate a failed write
	findHook  func() // runs after a fetch returns its snapshot; used to interleave writers
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[string]*model.ConversationSession)}
}

func (m *memSessionRepo) FindByUser(ctx context.Context, userID string) (*model.ConversationSession, error) {
	m.mu.Lock()
	if m.findErr != nil {
		m.mu.Unlock()
		return nil, m.findErr
	}
	s, ok := m.store[userID]
	var cp *model.ConversationSession
	if ok {
		cp = copySession(s)
	}
	hook := m.findHook
	m.findHook = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cp, nil
}

func (m *memSessionRepo) Upsert(ctx context.Context, s *model.ConversationSession) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.UserID] = copySession(s)
	return nil
}

func (m *memSessionRepo) get(userID string) *model.ConversationSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store[userID]; ok {
		return copySession(s)
	}
	return nil
}

func copySession(s *model.ConversationSession) *model.ConversationSession {
	cp := *s
	cp.Messages = make([]model.Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}

// memLocker fails immediately on contention so lock tests stay deterministic.
type memLocker struct {
	mu     sync.Mutex
	tokens map[string]string
}

var _ repository.Locker = (*memLocker)(nil)

func newMemLocker() *memLocker {
	return &memLocker{tokens: make(map[string]string)}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.tokens[key]; held {
		return "", domain.ErrTurnInProgress
	}
	token := key + "-token"
	l.tokens[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[key] == token {
		delete(l.tokens, key)
	}
	return nil
}

// fakeGenerator records what it was asked so tests can assert on the context
// window handed to the provider.
type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	lastMsgs []adapter.Message
}

var _ adapter.ReplyGenerator = (*fakeGenerator)(nil)

func (f *fakeGenerator) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func (f *fakeGenerator) Reply(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMsgs = append([]adapter.Message(nil), messages...)
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "ok", nil
	}
	return f.reply, nil
}
