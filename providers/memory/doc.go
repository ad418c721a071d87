// Package memory defines the ConversationStore used by the agent to load
// history and persist every message of a turn.
//
// Implementations live in sibling packages: inmemory for tests and the CLI,
// pgmemory for PostgreSQL and sqlitememory for an embedded SQLite file.
package memory
