package pgmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/memory"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newMockStore(t *testing.T, opts ...Option) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(mock, opts...), mock
}

func TestNew_TableNames(t *testing.T) {
	store, _ := newMockStore(t)
	if store.conversations != "owlseer_conversations" || store.messages != "owlseer_messages" {
		t.Errorf("unexpected default tables %q, %q", store.conversations, store.messages)
	}

	custom, _ := newMockStore(t, WithTablePrefix("app_"))
	if custom.conversations != `"app_conversations"` || custom.messages != `"app_messages"` {
		t.Errorf("expected sanitized custom tables, got %q, %q", custom.conversations, custom.messages)
	}
}

func TestEnsureConversation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO owlseer_conversations").
		WithArgs("c1", "Write me a TikTok ho...", fixedNow, memory.DefaultTitle).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.EnsureConversation(context.Background(), "c1", "Write me a TikTok hook about coffee"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppend(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO owlseer_messages").
		WithArgs("c1", "user", "hello", []byte(nil), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO owlseer_messages").
		WithArgs("c1", "assistant", "", []byte(`[{"id":"t1","name":"generate_hook","arguments":"{}"}]`), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	toolCallID := "t1"
	mock.ExpectExec("INSERT INTO owlseer_messages").
		WithArgs("c1", "tool", "result", []byte(nil), &toolCallID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	messages := []ai.Message{
		{Role: ai.RoleUser, Content: "hello"},
		{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: "t1", Name: "generate_hook", Arguments: "{}"}}},
		{Role: ai.RoleTool, ToolCallID: "t1", Content: "result"},
	}
	for _, m := range messages {
		if err := store.Append(ctx, "c1", m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppend_ExecError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO owlseer_messages").
		WillReturnError(errors.New("connection reset"))

	err := store.Append(context.Background(), "c1", ai.Message{Role: ai.RoleUser, Content: "x"})
	if err == nil || err.Error() != "pgmemory: append message: connection reset" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestFetchRecentMessages(t *testing.T) {
	store, mock := newMockStore(t)

	toolCallID := "t1"
	columns := []string{"role", "content", "tool_calls", "tool_call_id"}
	mock.ExpectQuery("SELECT role, content, tool_calls, tool_call_id").
		WithArgs("c1", 20).
		WillReturnRows(
			pgxmock.NewRows(columns).
				AddRow("assistant", "", []byte(`[{"id":"t1","name":"trend_analyzer","arguments":"{\"category\":\"food\"}"}]`), nil).
				AddRow("tool", "analysis", nil, &toolCallID),
		)

	messages, err := store.FetchRecentMessages(context.Background(), "c1", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if len(messages[0].ToolCalls) != 1 || messages[0].ToolCalls[0].Arguments != `{"category":"food"}` {
		t.Errorf("tool calls not decoded: %+v", messages[0])
	}
	if messages[1].ToolCallID != "t1" || messages[1].Role != ai.RoleTool {
		t.Errorf("unexpected tool message %+v", messages[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFetchRecentMessages_ZeroLimit(t *testing.T) {
	store, mock := newMockStore(t)

	messages, err := store.FetchRecentMessages(context.Background(), "c1", 0)
	if err != nil || messages == nil || len(messages) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v (%v)", messages, err)
	}
	// No expectations set: any query would fail.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database call: %v", err)
	}
}

func TestTouch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE owlseer_conversations SET updated_at").
		WithArgs("c1", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE owlseer_conversations SET updated_at").
		WithArgs("missing", fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.Touch(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Touch(context.Background(), "missing"); !errors.Is(err, memory.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, title, created_at, updated_at").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "created_at", "updated_at"}).
			AddRow("c1", "Coffee hooks", fixedNow, fixedNow.Add(time.Hour)))
	mock.ExpectQuery("SELECT id, title, created_at, updated_at").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "created_at", "updated_at"}))

	conv, err := store.Conversation(context.Background(), "c1")
	if err != nil || conv.Title != "Coffee hooks" || !conv.UpdatedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("unexpected conversation %+v (%v)", conv, err)
	}
	if _, err := store.Conversation(context.Background(), "missing"); !errors.Is(err, memory.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS owlseer_conversations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS owlseer_messages").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_owlseer_messages_conversation_seq").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIndexName(t *testing.T) {
	if got := indexName(`"app_messages"`); got != `"idx_app_messages_conversation_seq"` {
		t.Errorf("unexpected quoted index name %s", got)
	}
}
