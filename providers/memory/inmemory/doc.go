// Package inmemory provides a process-local [memory.ConversationStore]. State
// is lost when the process exits; it backs the tests and the CLI's default
// mode.
package inmemory
