package chatbox

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/weaviate/tiktoken-go"

	"github.com/go-go-golems/chatbox/pkg/elements"
)

// HistoryEntry is the projection the default history filter produces.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type filterSettings struct {
	chatName   string
	historyLen int
	hasLen     bool
	stop       func(acc []HistoryEntry) bool
}

type FilterOption func(s *filterSettings)

// FromChat filters the named conversation instead of the current one.
func FromChat(name string) FilterOption {
	return func(s *filterSettings) { s.chatName = name }
}

// HistoryLen stops the default filter once n user turns are collected.
func HistoryLen(n int) FilterOption {
	return func(s *filterSettings) {
		s.historyLen = n
		s.hasLen = true
	}
}

// StopWhen replaces the default stop condition of FilterHistory.
func StopWhen(stop func(acc []HistoryEntry) bool) FilterOption {
	return func(s *filterSettings) { s.stop = stop }
}

// DefaultFilter keeps the markdown and text content of a message, joined by a blank line.
func DefaultFilter(msg *Message, _ int) (HistoryEntry, bool) {
	parts := []string{}
	for _, e := range msg.Elements {
		if e.Kind == elements.KindMarkdown || e.Kind == elements.KindText {
			parts = append(parts, e.Content)
		}
	}
	return HistoryEntry{Role: msg.Role, Content: strings.Join(parts, "\n\n")}, true
}

// FilterHistory builds bounded context for a downstream consumer using the
// default filter. Without HistoryLen or StopWhen the whole history is returned.
func (cb *ChatBox) FilterHistory(opts ...FilterOption) []HistoryEntry {
	s := &filterSettings{}
	for _, opt := range opts {
		opt(s)
	}
	stop := s.stop
	if stop == nil {
		stop = func(acc []HistoryEntry) bool {
			if !s.hasLen {
				return false
			}
			users := 0
			for _, e := range acc {
				if e.Role == RoleUser {
					users++
				}
			}
			return users >= s.historyLen
		}
	}
	return FilterHistoryFunc(cb, DefaultFilter, stop, opts...)
}

// FilterHistoryFunc walks the history newest first. filter receives each
// message and its distance from the newest one (0 is the newest) and returns
// false to skip it. stop sees the results collected so far, in chronological
// order, and is checked before each message. A nil stop never stops.
func FilterHistoryFunc[T any](
	cb *ChatBox,
	filter func(msg *Message, index int) (T, bool),
	stop func(acc []T) bool,
	opts ...FilterOption,
) []T {
	s := &filterSettings{}
	for _, opt := range opts {
		opt(s)
	}
	history := cb.OtherHistory(s.chatName)

	var ret []T
	for i := 0; i < len(history); i++ {
		if stop != nil && stop(ret) {
			break
		}
		v, ok := filter(history[len(history)-1-i], i)
		if !ok {
			continue
		}
		ret = append([]T{v}, ret...)
	}
	return ret
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

func cl100k() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encoding, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoding, encodingErr
}

// CountTokens returns the number of cl100k tokens of s.
func CountTokens(s string) (int, error) {
	enc, err := cl100k()
	if err != nil {
		return 0, errors.Wrap(err, "load cl100k encoding")
	}
	return len(enc.Encode(s, nil, nil)), nil
}

// StopAtTokenBudget stops filtering once the collected content exceeds budget
// tokens. When the encoding cannot be loaded it falls back to counting four
// bytes per token.
func StopAtTokenBudget(budget int) func(acc []HistoryEntry) bool {
	return func(acc []HistoryEntry) bool {
		total := 0
		for _, e := range acc {
			n, err := CountTokens(e.Content)
			if err != nil {
				n = (len(e.Content) + 3) / 4
			}
			total += n
		}
		return total > budget
	}
}
