package memory

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leofalp/owlseer/providers/ai"
)

// DefaultTitle is the title of a conversation before its first user message.
const DefaultTitle = "New chat"

const titleRunes = 20

// ErrConversationNotFound is returned when an operation needs an existing
// conversation.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is the metadata record of a chat thread.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationStore persists conversations and their messages. All methods
// are safe for concurrent use.
type ConversationStore interface {
	// EnsureConversation creates the conversation if it does not exist, with
	// a title derived from firstMessage. An existing conversation that still
	// has the default title is renamed the same way.
	EnsureConversation(ctx context.Context, conversationID, firstMessage string) error

	// FetchRecentMessages returns up to limit of the most recent messages in
	// chronological order. A non-positive limit returns nothing.
	FetchRecentMessages(ctx context.Context, conversationID string, limit int) ([]ai.Message, error)

	// Append stores message at the end of the conversation.
	Append(ctx context.Context, conversationID string, message ai.Message) error

	// Touch bumps the conversation's UpdatedAt.
	Touch(ctx context.Context, conversationID string) error
}

// TitleFrom derives a conversation title from the first user message: the
// first 20 runes, with "..." appended when the message was longer.
func TitleFrom(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if text == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(text) <= titleRunes {
		return text
	}
	return string([]rune(text)[:titleRunes]) + "..."
}
