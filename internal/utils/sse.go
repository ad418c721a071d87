package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/leofalp/owlseer/providers/ai"
)

// maxSSELineSize is the maximum size of a single SSE line (1 MB). The
// default bufio.Scanner limit of 64 KiB is too small for large tool-call
// arguments or Gemini snapshots.
const maxSSELineSize = 1 * 1024 * 1024

// sseDoneSentinel terminates OpenAI-style streams.
const sseDoneSentinel = "[DONE]"

// ParseSSEData extracts the payload of a "data:" line. ok is false for any
// other line (comments, event:, id:, blank) and for the [DONE] sentinel.
func ParseSSEData(line string) (payload string, ok bool) {
	data, found := strings.CutPrefix(line, "data:")
	if !found {
		return "", false
	}
	data = strings.TrimSpace(data)
	if data == "" || data == sseDoneSentinel {
		return "", false
	}
	return data, true
}

// IsSSEDone reports whether line is the stream-end sentinel.
func IsSSEDone(line string) bool {
	data, found := strings.CutPrefix(line, "data:")
	return found && strings.TrimSpace(data) == sseDoneSentinel
}

// DecodeSSELine decodes the JSON payload of a data line into T. It returns
// nil when the line carries no data, is the sentinel, or does not decode.
// Undecodable lines are logged and skipped: a stray keep-alive must never
// abort a stream.
func DecodeSSELine[T any](line string) *T {
	payload, ok := ParseSSEData(line)
	if !ok {
		return nil
	}
	var event T
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Debug("skipping undecodable SSE line", "error", err.Error(), "payload", TruncateString(payload, 200))
		return nil
	}
	return &event
}

// SSEScanner reads raw lines from an SSE body.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner over reader. Lines longer than 1 MB
// make Next return an error wrapping bufio.ErrTooLong.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next raw line, or io.EOF at the end of the body.
func (s *SSEScanner) Next() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}
	return "", io.EOF
}

// SSEEvents yields every decodable data event of body in order. It stops at
// the [DONE] sentinel or at EOF. Read failures are yielded once as
// *ai.TransportError; decode failures are skipped.
func SSEEvents[T any](body io.Reader) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		scanner := NewSSEScanner(body)
		for {
			line, err := scanner.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, ai.NewTransportError(err))
				return
			}
			if IsSSEDone(line) {
				return
			}
			event := DecodeSSELine[T](line)
			if event == nil {
				continue
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}
