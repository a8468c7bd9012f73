package chatbox

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/events"
)

// Snapshot is the serialized state of a chat box.
type Snapshot struct {
	CurrentConversationName string                        `json:"currentConversationName"`
	SessionKey              string                        `json:"sessionKey"`
	UserAvatar              string                        `json:"userAvatar"`
	AssistantAvatar         string                        `json:"assistantAvatar"`
	Greetings               []elements.Record             `json:"greetings"`
	Conversations           map[string]ConversationRecord `json:"conversations"`
}

var snapshotKeys = []string{
	"currentConversationName",
	"sessionKey",
	"userAvatar",
	"assistantAvatar",
	"greetings",
	"conversations",
}

// ToDict captures every conversation with its history and context.
func (cb *ChatBox) ToDict() *Snapshot {
	b := cb.book()
	s := &Snapshot{
		CurrentConversationName: cb.chatName,
		SessionKey:              cb.sessionKey,
		UserAvatar:              cb.userAvatar,
		AssistantAvatar:         cb.assistantAvatar,
		Greetings:               make([]elements.Record, 0, len(cb.greetings)),
		Conversations:           make(map[string]ConversationRecord, len(b.conversations)),
	}
	for _, g := range cb.greetings {
		s.Greetings = append(s.Greetings, g.ToRecord())
	}
	for _, name := range b.names {
		c := b.conversations[name]
		r := ConversationRecord{
			History: make([]MessageRecord, 0, len(c.History)),
			Context: copyMap(c.Context),
		}
		for _, m := range c.History {
			r.History = append(r.History, m.ToRecord())
		}
		s.Conversations[name] = r
	}
	return s
}

// ToJSON encodes ToDict. Conversations are ordered by name; HTML is not escaped.
func (cb *ChatBox) ToJSON(pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(cb.ToDict()); err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FromJSON loads a snapshot produced by ToJSON. Missing top level keys fail
// before any state is touched. Numbers in metadata, context and options are
// kept as json.Number so large integers survive a round trip.
func (cb *ChatBox) FromJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(ErrInvalidSnapshot, "decode: %v", err)
	}
	for _, k := range snapshotKeys {
		if _, ok := raw[k]; !ok {
			return errors.Wrapf(ErrInvalidSnapshot, "missing key %q", k)
		}
	}
	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		return errors.Wrapf(ErrInvalidSnapshot, "decode: %v", err)
	}
	return cb.FromDict(&s)
}

// FromDict replaces the whole state with s. Conversations are rebuilt in name
// order and the snapshot's current conversation becomes current. Nothing
// changes when any element fails to decode.
func (cb *ChatBox) FromDict(s *Snapshot) error {
	if s == nil {
		return errors.Wrap(ErrInvalidSnapshot, "nil snapshot")
	}
	greetings := make([]*elements.Element, 0, len(s.Greetings))
	for i, r := range s.Greetings {
		e, err := elements.FromRecord(r)
		if err != nil {
			return errors.Wrapf(ErrInvalidSnapshot, "greeting %d: %v", i, err)
		}
		greetings = append(greetings, e)
	}

	names := make([]string, 0, len(s.Conversations))
	for name := range s.Conversations {
		names = append(names, name)
	}
	sort.Strings(names)

	b := newBook()
	for _, name := range names {
		r := s.Conversations[name]
		c := &Conversation{
			Name:    name,
			History: make([]*Message, 0, len(r.History)),
			Context: copyMap(r.Context),
		}
		for i, mr := range r.History {
			m, err := messageFromRecord(mr)
			if err != nil {
				return errors.Wrapf(ErrInvalidSnapshot, "conversation %q message %d: %v", name, i, err)
			}
			c.History = append(c.History, m)
		}
		b.put(c)
	}

	if s.SessionKey != "" {
		cb.sessionKey = s.SessionKey
	}
	cb.userAvatar = s.UserAvatar
	cb.assistantAvatar = s.AssistantAvatar
	cb.greetings = greetings
	cb.state.Set(cb.sessionKey, b)
	cb.UseChatName(s.CurrentConversationName)

	log.Debug().
		Str("session_key", cb.sessionKey).
		Str("conversation", cb.chatName).
		Int("conversations", len(names)).
		Msg("snapshot loaded")
	cb.publish(events.Event{Type: events.TypeSnapshotLoaded})
	return nil
}
