package chatbox

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

type updateSettings struct {
	elementIndex int
	historyIndex int
	streaming    *bool
	framing      elements.FramingOverrides
	metadata     map[string]any
}

type UpdateOption func(s *updateSettings)

// AtElement selects the element to update. Negative values count from the end.
func AtElement(i int) UpdateOption {
	return func(s *updateSettings) { s.elementIndex = i }
}

// AtHistory selects the message to update. Negative values count from the end.
func AtHistory(i int) UpdateOption {
	return func(s *updateSettings) { s.historyIndex = i }
}

// Streaming controls the cursor on markdown content. Text input streams by default.
func Streaming(streaming bool) UpdateOption {
	return func(s *updateSettings) { s.streaming = &streaming }
}

func Title(title string) UpdateOption {
	return func(s *updateSettings) { s.framing.Title = &title }
}

func Expanded(expanded bool) UpdateOption {
	return func(s *updateSettings) { s.framing.Expanded = &expanded }
}

func State(state surface.State) UpdateOption {
	return func(s *updateSettings) { s.framing.State = &state }
}

// MergeMetadata merges values into the metadata of the updated message.
func MergeMetadata(metadata map[string]any) UpdateOption {
	return func(s *updateSettings) {
		if s.metadata == nil {
			s.metadata = map[string]any{}
		}
		for k, v := range metadata {
			s.metadata[k] = v
		}
	}
}

// UpdateMsg replaces the element at a (history, element) coordinate of the
// current conversation and redraws it into the placeholder the old element
// owned. The new element takes the framing of the old one, then the Title,
// Expanded and State overrides. With a nil element only the framing changes.
//
// element may be a string, which becomes markdown, or an *elements.Element.
// Markdown input streams unless Streaming(false) is given; while streaming the
// cursor is appended to the stored content. The caller's element is never
// modified.
//
// An empty history or a target message without elements is a no-op returning
// nil. Any other coordinate outside the history is ErrIndexOutOfRange.
func (cb *ChatBox) UpdateMsg(element any, opts ...UpdateOption) (*elements.Element, error) {
	s := &updateSettings{elementIndex: -1, historyIndex: -1}
	for _, opt := range opts {
		opt(s)
	}

	conv := cb.current()
	if len(conv.History) == 0 {
		return nil, nil
	}
	hi, ok := resolveIndex(s.historyIndex, len(conv.History))
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "history index %d (len %d)", s.historyIndex, len(conv.History))
	}
	msg := conv.History[hi]
	if len(msg.Elements) == 0 {
		return nil, nil
	}
	ei, ok := resolveIndex(s.elementIndex, len(msg.Elements))
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "element index %d (len %d)", s.elementIndex, len(msg.Elements))
	}

	var incoming *elements.Element
	switch v := element.(type) {
	case nil:
	case string:
		prepared, err := cb.prepare(msg.Role, []any{v})
		if err != nil {
			return nil, err
		}
		incoming = prepared[0]
	case *elements.Element:
		incoming = v
	default:
		return nil, errors.Wrapf(ErrUnsupportedInput, "%T", element)
	}

	old := msg.Elements[ei]
	var next *elements.Element
	if incoming == nil {
		next = elements.WithFraming(old, old, s.framing)
	} else {
		streaming := incoming.Kind == elements.KindMarkdown
		if s.streaming != nil {
			streaming = *s.streaming
		}
		next = elements.WithFraming(incoming, old, s.framing)
		if streaming && next.Kind == elements.KindMarkdown {
			next.Content = elements.WithCursor(next.Content)
		}
	}

	if cb.surface != nil && old.Rendered() {
		if _, err := next.RenderReplacing(old); err != nil {
			return nil, err
		}
	}
	msg.Elements[ei] = next
	for k, v := range s.metadata {
		msg.Metadata[k] = v
	}

	log.Trace().
		Str("conversation", conv.Name).
		Int("history_index", hi).
		Int("element_index", ei).
		Str("kind", string(next.Kind)).
		Int("content_len", len(next.Content)).
		Msg("element updated")
	cb.publish(events.Event{
		Type:         events.TypeElementUpdated,
		HistoryIndex: hi,
		ElementIndex: ei,
		Role:         string(msg.Role),
		Elements:     []elements.Record{next.ToRecord()},
		Metadata:     s.metadata,
	})
	return next, nil
}

type insertSettings struct {
	historyIndex int
	pos          int
}

type InsertOption func(s *insertSettings)

// InHistory selects the message to insert into. Negative values count from the end.
func InHistory(i int) InsertOption {
	return func(s *insertSettings) { s.historyIndex = i }
}

// AtPosition selects where the element goes. Negative values count from the
// end, -1 appending.
func AtPosition(pos int) InsertOption {
	return func(s *insertSettings) { s.pos = pos }
}

// InsertMsg adds an element to an existing message of the current
// conversation and draws it into a new placeholder of that message's turn.
func (cb *ChatBox) InsertMsg(element any, opts ...InsertOption) (*elements.Element, error) {
	s := &insertSettings{historyIndex: -1, pos: -1}
	for _, opt := range opts {
		opt(s)
	}

	conv := cb.current()
	hi, ok := resolveIndex(s.historyIndex, len(conv.History))
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "history index %d (len %d)", s.historyIndex, len(conv.History))
	}
	msg := conv.History[hi]

	var e *elements.Element
	switch v := element.(type) {
	case string:
		prepared, err := cb.prepare(msg.Role, []any{v})
		if err != nil {
			return nil, err
		}
		e = prepared[0]
	case *elements.Element:
		if v == nil {
			return nil, errors.Wrap(ErrUnsupportedInput, "nil element")
		}
		e = v
	default:
		return nil, errors.Wrapf(ErrUnsupportedInput, "%T", element)
	}

	pos := s.pos
	if pos < 0 {
		pos += len(msg.Elements) + 1
	}
	if pos < 0 || pos > len(msg.Elements) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "position %d (len %d)", s.pos, len(msg.Elements))
	}

	if cb.surface != nil {
		if msg.container == nil {
			return nil, errors.Wrapf(elements.ErrNotRendered, "message %d has not been drawn", hi)
		}
		if _, err := e.RenderAt(msg.container, pos); err != nil {
			return nil, err
		}
	}
	msg.Elements = append(msg.Elements, nil)
	copy(msg.Elements[pos+1:], msg.Elements[pos:])
	msg.Elements[pos] = e

	cb.publish(events.Event{
		Type:         events.TypeElementInserted,
		HistoryIndex: hi,
		ElementIndex: pos,
		Role:         string(msg.Role),
		Elements:     []elements.Record{e.ToRecord()},
	})
	return e, nil
}
