package internal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// EventKind classifies a raw transcript record. Only message events carry
// conversational content; everything else is skippable noise.
type EventKind string

const (
	EventMessage    EventKind = "message"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventMeta       EventKind = "meta"
	EventOther      EventKind = "other"
)

// Event is the source-independent unit emitted by both parser variants.
type Event struct {
	Kind      EventKind
	Role      string
	Text      string
	Timestamp string
}

// MaxLineSize bounds a single transcript line. Long assistant turns
// overflow bufio's default 64KB buffer.
const MaxLineSize = 1024 * 1024

// Scanner is a forward-only reader over a line-delimited transcript.
// Malformed records are skipped; one at the very end of the stream is
// reported via Truncated instead of failing, because in-progress
// session files are an expected steady state.
type Scanner struct {
	sc        *bufio.Scanner
	decode    func([]byte) (Event, bool)
	event     Event
	lines     int
	truncated bool
	done      bool
}

// NewScanner returns a scanner for the given source's record format.
// Scanners are one-pass; create a new one to re-read the same input.
func NewScanner(r io.Reader, source SessionSource) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, MaxLineSize), MaxLineSize)

	decode := decodeClaudeEvent
	if source == SourceCodex {
		decode = decodeCodexEvent
	}
	return &Scanner{sc: sc, decode: decode}
}

// Scan advances to the next event. It returns false at end of stream;
// check Truncated afterwards.
func (s *Scanner) Scan() bool {
	for !s.done && s.sc.Scan() {
		s.lines++
		line := bytes.TrimSpace(s.sc.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, ok := s.decode(line)
		if !ok {
			// Skip the garbage record. The flag sticks only when no
			// decodable record follows, i.e. a truncated tail.
			s.truncated = true
			continue
		}
		s.truncated = false
		s.event = ev
		return true
	}

	if !s.done && s.sc.Err() != nil {
		s.truncated = true
	}
	s.done = true
	return false
}

func (s *Scanner) Event() Event { return s.event }

// Truncated reports whether the stream ended at a malformed or
// overlong trailing record.
func (s *Scanner) Truncated() bool { return s.truncated }

// Lines is the number of input lines consumed so far; after a full
// drain it is the line count of the whole file.
func (s *Scanner) Lines() int { return s.lines }

// Collect drains the scanner into a slice.
func (s *Scanner) Collect() []Event {
	var events []Event
	for s.Scan() {
		events = append(events, s.Event())
	}
	return events
}

// contentBlock covers both variants' block shapes: Claude uses
// type "text" plus tool_use/tool_result, Codex uses input_text and
// output_text.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

func decodeClaudeEvent(line []byte) (Event, bool) {
	var rec claudeLine
	if err := json.Unmarshal(line, &rec); err != nil {
		return Event{}, false
	}

	switch rec.Type {
	case "user", "assistant":
		text, kind := extractText(rec.Message.Content)
		role := rec.Message.Role
		if role == "" {
			role = rec.Type
		}
		return Event{Kind: kind, Role: role, Text: text, Timestamp: rec.Timestamp}, true
	case "summary", "system", "file-history-snapshot":
		return Event{Kind: EventMeta, Timestamp: rec.Timestamp}, true
	default:
		// Unknown record kinds are expected as the format evolves.
		return Event{Kind: EventOther, Timestamp: rec.Timestamp}, true
	}
}

type codexLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Payload   struct {
		Type      string          `json:"type"`
		Role      string          `json:"role"`
		Timestamp string          `json:"timestamp"`
		Content   json.RawMessage `json:"content"`
	} `json:"payload"`
}

func decodeCodexEvent(line []byte) (Event, bool) {
	var rec codexLine
	if err := json.Unmarshal(line, &rec); err != nil {
		return Event{}, false
	}

	ts := rec.Timestamp
	if ts == "" {
		ts = rec.Payload.Timestamp
	}

	switch rec.Type {
	case "session_meta", "turn_context":
		return Event{Kind: EventMeta, Timestamp: ts}, true
	case "response_item":
		switch rec.Payload.Type {
		case "message":
			text, _ := extractText(rec.Payload.Content)
			return Event{Kind: EventMessage, Role: rec.Payload.Role, Text: text, Timestamp: ts}, true
		case "function_call":
			return Event{Kind: EventToolCall, Timestamp: ts}, true
		case "function_call_output":
			return Event{Kind: EventToolResult, Timestamp: ts}, true
		default:
			return Event{Kind: EventOther, Timestamp: ts}, true
		}
	default:
		return Event{Kind: EventOther, Timestamp: ts}, true
	}
}

// extractText joins the text blocks of a message body and classifies
// tool-only bodies. The body may be a plain string or a block list.
func extractText(content json.RawMessage) (string, EventKind) {
	if len(content) == 0 {
		return "", EventMessage
	}

	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		return plain, EventMessage
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return "", EventMessage
	}

	var text bytes.Buffer
	var sawToolCall, sawToolResult bool
	for _, b := range blocks {
		switch b.Type {
		case "text", "input_text", "output_text":
			text.WriteString(b.Text)
		case "tool_use":
			sawToolCall = true
		case "tool_result":
			sawToolResult = true
		}
	}

	if text.Len() == 0 {
		if sawToolCall {
			return "", EventToolCall
		}
		if sawToolResult {
			return "", EventToolResult
		}
	}
	return text.String(), EventMessage
}
