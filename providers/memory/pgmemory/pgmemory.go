package pgmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/memory"
)

const defaultTablePrefix = "owlseer_"

// Querier abstracts the pgx query methods the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements [memory.ConversationStore] on PostgreSQL. Concurrency is
// delegated to the pgx pool.
type Store struct {
	db            Querier
	conversations string
	messages      string
	now           func() time.Time
}

var _ memory.ConversationStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTablePrefix replaces the "owlseer_" prefix of both table names. Names
// are sanitized with pgx.Identifier because they are interpolated into SQL.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) {
		s.conversations = pgx.Identifier{prefix + "conversations"}.Sanitize()
		s.messages = pgx.Identifier{prefix + "messages"}.Sanitize()
	}
}

// WithClock replaces time.Now for conversation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store on db, typically a *pgxpool.Pool.
func New(db Querier, opts ...Option) *Store {
	s := &Store{
		db:            db,
		conversations: defaultTablePrefix + "conversations",
		messages:      defaultTablePrefix + "messages",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureConversation upserts the conversation row. The title is only replaced
// while it is still the default one.
func (s *Store) EnsureConversation(ctx context.Context, conversationID, firstMessage string) error {
	query := fmt.Sprintf(`INSERT INTO %[1]s (id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title
		WHERE %[1]s.title = $4 AND EXCLUDED.title <> $4`, s.conversations)

	_, err := s.db.Exec(ctx, query, conversationID, memory.TitleFrom(firstMessage), s.now().UTC(), memory.DefaultTitle)
	if err != nil {
		return fmt.Errorf("pgmemory: ensure conversation: %w", err)
	}
	return nil
}

// FetchRecentMessages fetches the newest rows and re-orders them oldest
// first.
func (s *Store) FetchRecentMessages(ctx context.Context, conversationID string, limit int) ([]ai.Message, error) {
	if limit <= 0 {
		return []ai.Message{}, nil
	}

	query := fmt.Sprintf(`SELECT role, content, tool_calls, tool_call_id
		FROM (
			SELECT seq, role, content, tool_calls, tool_call_id
			FROM %s WHERE conversation_id = $1 ORDER BY seq DESC LIMIT $2
		) sub ORDER BY sub.seq ASC`, s.messages)

	rows, err := s.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgmemory: fetch recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Append inserts one message. Tool calls are stored as JSONB, NULL when
// absent.
func (s *Store) Append(ctx context.Context, conversationID string, message ai.Message) error {
	toolCallsJSON, err := marshalToolCalls(message.ToolCalls)
	if err != nil {
		return fmt.Errorf("pgmemory: encode tool calls: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(conversation_id, role, content, tool_calls, tool_call_id)
		VALUES ($1, $2, $3, $4, $5)`, s.messages)

	_, err = s.db.Exec(ctx, query,
		conversationID,
		string(message.Role),
		message.Content,
		toolCallsJSON,
		nullableString(message.ToolCallID),
	)
	if err != nil {
		return fmt.Errorf("pgmemory: append message: %w", err)
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = $2 WHERE id = $1`, s.conversations)

	tag, err := s.db.Exec(ctx, query, conversationID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("pgmemory: touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pgmemory: touch %q: %w", conversationID, memory.ErrConversationNotFound)
	}
	return nil
}

// Conversation returns the metadata of one conversation.
func (s *Store) Conversation(ctx context.Context, conversationID string) (memory.Conversation, error) {
	query := fmt.Sprintf(`SELECT id, title, created_at, updated_at FROM %s WHERE id = $1`, s.conversations)

	var c memory.Conversation
	err := s.db.QueryRow(ctx, query, conversationID).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.Conversation{}, fmt.Errorf("pgmemory: conversation %q: %w", conversationID, memory.ErrConversationNotFound)
	}
	if err != nil {
		return memory.Conversation{}, fmt.Errorf("pgmemory: conversation: %w", err)
	}
	return c, nil
}

// scanMessages returns an empty non-nil slice when there are no rows.
func scanMessages(rows pgx.Rows) ([]ai.Message, error) {
	messages := []ai.Message{}

	for rows.Next() {
		var role, content string
		var toolCallsJSON []byte
		var toolCallID *string

		if err := rows.Scan(&role, &content, &toolCallsJSON, &toolCallID); err != nil {
			return nil, fmt.Errorf("pgmemory: scan row: %w", err)
		}

		message := ai.Message{
			Role:       ai.MessageRole(role),
			Content:    content,
			ToolCallID: derefString(toolCallID),
		}
		if len(toolCallsJSON) > 0 {
			if err := json.Unmarshal(toolCallsJSON, &message.ToolCalls); err != nil {
				return nil, fmt.Errorf("pgmemory: decode tool calls: %w", err)
			}
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmemory: iterate rows: %w", err)
	}
	return messages, nil
}

// marshalToolCalls maps an empty slice to SQL NULL rather than "[]".
func marshalToolCalls(calls []ai.ToolCall) ([]byte, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	return json.Marshal(calls)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
