package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/memory"
	"github.com/leofalp/owlseer/providers/observability"
)

type conversation struct {
	meta     memory.Conversation
	messages []ai.Message
}

// Store is a concurrency-safe in-memory ConversationStore. It uses an
// RWMutex and is efficient for read-heavy workloads.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	now           func() time.Time
}

var _ memory.ConversationStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		conversations: make(map[string]*conversation),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) EnsureConversation(_ context.Context, conversationID, firstMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		now := s.now()
		s.conversations[conversationID] = &conversation{meta: memory.Conversation{
			ID:        conversationID,
			Title:     memory.TitleFrom(firstMessage),
			CreatedAt: now,
			UpdatedAt: now,
		}}
		return nil
	}
	if c.meta.Title == memory.DefaultTitle {
		c.meta.Title = memory.TitleFrom(firstMessage)
	}
	return nil
}

// FetchRecentMessages returns a copy, so callers may modify the result.
func (s *Store) FetchRecentMessages(_ context.Context, conversationID string, limit int) ([]ai.Message, error) {
	if limit <= 0 {
		return []ai.Message{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok || len(c.messages) == 0 {
		return []ai.Message{}, nil
	}
	start := max(len(c.messages)-limit, 0)
	out := make([]ai.Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out, nil
}

// Append records a memory.append event on the span in ctx, if any. Appending
// to an unknown conversation creates it with the default title.
func (s *Store) Append(ctx context.Context, conversationID string, message ai.Message) error {
	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	if !ok {
		now := s.now()
		c = &conversation{meta: memory.Conversation{ID: conversationID, Title: memory.DefaultTitle, CreatedAt: now, UpdatedAt: now}}
		s.conversations[conversationID] = c
	}
	c.messages = append(c.messages, message)
	total := len(c.messages)
	s.mu.Unlock()

	observability.AddEvent(ctx, observability.EventMemoryAppend,
		observability.String(observability.AttrMemoryStore, "inmemory"),
		observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
		observability.Int(observability.AttrMemoryMessageCount, total),
	)
	return nil
}

func (s *Store) Touch(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("touch %q: %w", conversationID, memory.ErrConversationNotFound)
	}
	c.meta.UpdatedAt = s.now()
	return nil
}

// Conversation returns the metadata of one conversation.
func (s *Store) Conversation(_ context.Context, conversationID string) (memory.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return memory.Conversation{}, fmt.Errorf("conversation %q: %w", conversationID, memory.ErrConversationNotFound)
	}
	return c.meta, nil
}

// Conversations lists every conversation, most recently updated first.
func (s *Store) Conversations(_ context.Context) ([]memory.Conversation, error) {
	s.mu.RLock()
	out := make([]memory.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c.meta)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
