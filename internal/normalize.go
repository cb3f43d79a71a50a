package internal

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxContentLength clamps a single message; remote ingest caps size.
	MaxContentLength = 15000

	// TitleBudget is the character budget for derived thread titles.
	TitleBudget = 60
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// NormalizeOptions tunes event-to-message conversion.
type NormalizeOptions struct {
	// MaxMessages keeps only the most recent N messages; 0 = unlimited.
	MaxMessages int

	// DropIncompleteTurns removes cancelled user turns (a user message
	// with no assistant reply) and the trailing in-flight turn.
	DropIncompleteTurns bool
}

// Normalize converts parsed events into the canonical message list.
// Order follows the transcript; no reordering or deduplication.
func Normalize(events []Event, opts NormalizeOptions) ([]Message, error) {
	var messages []Message
	for _, ev := range events {
		if ev.Kind != EventMessage {
			continue
		}
		if ev.Role != "user" && ev.Role != "assistant" {
			continue
		}

		text := controlChars.ReplaceAllString(ev.Text, "")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if len(text) > MaxContentLength {
			if runes := []rune(text); len(runes) > MaxContentLength {
				text = string(runes[:MaxContentLength])
			}
		}

		messages = append(messages, Message{Role: ev.Role, Content: text, Timestamp: ev.Timestamp})
	}

	if opts.MaxMessages > 0 && len(messages) > opts.MaxMessages {
		messages = messages[len(messages)-opts.MaxMessages:]
	}

	if opts.DropIncompleteTurns {
		messages = dropIncompleteTurns(messages)
	}

	if len(messages) == 0 {
		return nil, ErrEmptySession
	}
	return messages, nil
}

// dropIncompleteTurns keeps a user message only when an assistant reply
// follows it, then strips the trailing in-flight turn.
func dropIncompleteTurns(messages []Message) []Message {
	if len(messages) < 2 {
		return messages
	}

	filtered := messages[:0:0]
	for i, msg := range messages {
		if msg.Role == "user" && i+1 < len(messages) && messages[i+1].Role != "assistant" {
			continue
		}
		filtered = append(filtered, msg)
	}

	lastUser := -1
	for i := len(filtered) - 1; i >= 0; i-- {
		if filtered[i].Role == "user" {
			lastUser = i
			break
		}
	}
	if lastUser >= 0 && lastUser == len(filtered)-1 {
		filtered = filtered[:lastUser]
	}
	return filtered
}

// DeriveTitle builds a thread title from the first user message,
// whitespace collapsed and clipped to the title budget. When no user
// message exists the title falls back to the source and timestamp.
func DeriveTitle(messages []Message, source SessionSource, now time.Time) string {
	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		title, clipped := Clip(CollapseWhitespace(msg.Content), TitleBudget)
		if clipped {
			title += "..."
		}
		return title
	}
	return fmt.Sprintf("%s session - %s", source.Label(), now.Format("2006-01-02 15:04"))
}

// CollapseWhitespace flattens runs of whitespace, including newlines,
// into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clip truncates s to at most budget characters, rune-safe, after
// trimming. It reports whether anything was removed.
func Clip(s string, budget int) (string, bool) {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= budget {
		return s, false
	}
	return string(runes[:budget]), true
}
