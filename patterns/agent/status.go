package agent

import "github.com/leofalp/owlseer/providers/ai"

// StatusKind enumerates the phases of a turn.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusThinking
	StatusCallingTool
	StatusStreaming
	StatusError
)

// Status is the current phase of the orchestrator. CallingTool carries the
// tool name and Error carries the failure message in Detail.
type Status struct {
	Kind   StatusKind
	Detail string
}

var (
	Idle      = Status{Kind: StatusIdle}
	Thinking  = Status{Kind: StatusThinking}
	Streaming = Status{Kind: StatusStreaming}
)

// CallingTool is the status while the named tool runs.
func CallingTool(name string) Status {
	return Status{Kind: StatusCallingTool, Detail: name}
}

// Failed is the status left behind by a turn that ended with an error.
func Failed(message string) Status {
	return Status{Kind: StatusError, Detail: message}
}

// Busy reports whether a turn is in flight. Idle and Error both accept a new
// turn.
func (s Status) Busy() bool {
	return s.Kind == StatusThinking || s.Kind == StatusCallingTool || s.Kind == StatusStreaming
}

func (s Status) String() string {
	switch s.Kind {
	case StatusIdle:
		return "idle"
	case StatusThinking:
		return "thinking"
	case StatusCallingTool:
		return "calling_tool(" + s.Detail + ")"
	case StatusStreaming:
		return "streaming"
	case StatusError:
		return "error(" + s.Detail + ")"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the orchestrator state. Usage and ToolCalls
// cover the current or last turn.
type Session struct {
	Status         Status
	IterationCount int
	Cancelled      bool
	ToolCalls      int
	Usage          ai.Usage
}

func (s *Session) includeUsage(usage *ai.Usage) {
	if usage == nil {
		return
	}
	s.Usage.PromptTokens += usage.PromptTokens
	s.Usage.CompletionTokens += usage.CompletionTokens
	s.Usage.TotalTokens += usage.TotalTokens
}
