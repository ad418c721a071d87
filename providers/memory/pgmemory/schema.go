package pgmemory

import (
	"context"
	"fmt"
)

const createConversationsSQL = `CREATE TABLE IF NOT EXISTS %s (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// The seq column orders messages within a conversation even when several
// are written in the same microsecond.
const createMessagesSQL = `CREATE TABLE IF NOT EXISTS %s (
    seq             BIGSERIAL PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL DEFAULT '',
    tool_calls      JSONB,
    tool_call_id    TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createMessagesIndexSQL = `CREATE INDEX IF NOT EXISTS %s
    ON %s (conversation_id, seq)`

// EnsureSchema creates both tables and the message lookup index. It is meant
// for development and tests; deployments should run migrations instead.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"create conversations table", fmt.Sprintf(createConversationsSQL, s.conversations)},
		{"create messages table", fmt.Sprintf(createMessagesSQL, s.messages)},
		{"create messages index", fmt.Sprintf(createMessagesIndexSQL, indexName(s.messages), s.messages)},
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("pgmemory: %s: %w", stmt.name, err)
		}
	}
	return nil
}

// indexName derives the index identifier from a possibly quoted table name.
func indexName(table string) string {
	if len(table) > 1 && table[0] == '"' {
		return `"idx_` + table[1:len(table)-1] + `_conversation_seq"`
	}
	return "idx_" + table + "_conversation_seq"
}
