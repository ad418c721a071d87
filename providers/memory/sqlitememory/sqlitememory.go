// Package sqlitememory provides a [memory.ConversationStore] in an embedded
// SQLite file, using the zombiezen.com/go/sqlite connection pool.
package sqlitememory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL DEFAULT '',
    tool_calls      TEXT,
    tool_call_id    TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages (conversation_id, seq);
`

// Store is safe for concurrent use; each call takes its own connection.
type Store struct {
	pool *sqlitex.Pool
	now  func() time.Time
}

var _ memory.ConversationStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for conversation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path and applies the
// schema on every new connection.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitememory: path is required")
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    4,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: opening %s: %w", path, err)
	}

	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitememory: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlitememory: apply schema: %w", err)
	}
	return nil
}

// Close blocks until every borrowed connection is returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// withConn runs fn on a pooled connection.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlitememory: take connection: %w", err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

func (s *Store) EnsureConversation(ctx context.Context, conversationID, firstMessage string) error {
	now := s.now().UnixMilli()
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO conversations (id, title, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title
			WHERE conversations.title = ? AND excluded.title <> ?`, &sqlitex.ExecOptions{
			Args: []any{conversationID, memory.TitleFrom(firstMessage), now, now, memory.DefaultTitle, memory.DefaultTitle},
		})
	})
	if err != nil {
		return fmt.Errorf("sqlitememory: ensure conversation: %w", err)
	}
	return nil
}

func (s *Store) FetchRecentMessages(ctx context.Context, conversationID string, limit int) ([]ai.Message, error) {
	messages := []ai.Message{}
	if limit <= 0 {
		return messages, nil
	}

	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT role, content, tool_calls, tool_call_id FROM (
				SELECT seq, role, content, tool_calls, tool_call_id
				FROM messages WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?
			) ORDER BY seq ASC`, &sqlitex.ExecOptions{
			Args: []any{conversationID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				message := ai.Message{
					Role:       ai.MessageRole(stmt.ColumnText(0)),
					Content:    stmt.ColumnText(1),
					ToolCallID: stmt.ColumnText(3),
				}
				if raw := stmt.ColumnText(2); raw != "" {
					if err := json.Unmarshal([]byte(raw), &message.ToolCalls); err != nil {
						return fmt.Errorf("decode tool calls: %w", err)
					}
				}
				messages = append(messages, message)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: fetch recent messages: %w", err)
	}
	return messages, nil
}

func (s *Store) Append(ctx context.Context, conversationID string, message ai.Message) error {
	var toolCalls, toolCallID any
	if len(message.ToolCalls) > 0 {
		encoded, err := json.Marshal(message.ToolCalls)
		if err != nil {
			return fmt.Errorf("sqlitememory: encode tool calls: %w", err)
		}
		toolCalls = string(encoded)
	}
	if message.ToolCallID != "" {
		toolCallID = message.ToolCallID
	}

	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO messages (conversation_id, role, content, tool_calls, tool_call_id)
			VALUES (?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{conversationID, string(message.Role), message.Content, toolCalls, toolCallID},
		})
	})
	if err != nil {
		return fmt.Errorf("sqlitememory: append message: %w", err)
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, conversationID string) error {
	var changed int
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `UPDATE conversations SET updated_at = ? WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{s.now().UnixMilli(), conversationID},
		})
		changed = conn.Changes()
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlitememory: touch: %w", err)
	}
	if changed == 0 {
		return fmt.Errorf("sqlitememory: touch %q: %w", conversationID, memory.ErrConversationNotFound)
	}
	return nil
}

// Conversation returns the metadata of one conversation.
func (s *Store) Conversation(ctx context.Context, conversationID string) (memory.Conversation, error) {
	var (
		conv  memory.Conversation
		found bool
	)
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{conversationID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				conv = memory.Conversation{
					ID:        stmt.ColumnText(0),
					Title:     stmt.ColumnText(1),
					CreatedAt: time.UnixMilli(stmt.ColumnInt64(2)),
					UpdatedAt: time.UnixMilli(stmt.ColumnInt64(3)),
				}
				return nil
			},
		})
	})
	if err != nil {
		return memory.Conversation{}, fmt.Errorf("sqlitememory: conversation: %w", err)
	}
	if !found {
		return memory.Conversation{}, fmt.Errorf("sqlitememory: conversation %q: %w", conversationID, memory.ErrConversationNotFound)
	}
	return conv, nil
}
