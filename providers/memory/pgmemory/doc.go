// Package pgmemory provides a PostgreSQL-backed [memory.ConversationStore]
// using pgx/v5. Conversations and messages live in two tables
// (owlseer_conversations, owlseer_messages by default).
//
// Use [Store.EnsureSchema] during development to create them; production
// deployments should manage schema migrations with dedicated tooling.
package pgmemory
