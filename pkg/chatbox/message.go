package chatbox

import (
	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role     Role
	Elements []*elements.Element
	Metadata map[string]any

	// container is the render container the message was last drawn into.
	container surface.Container
}

// Container returns the container the message was drawn into, or nil.
func (m *Message) Container() surface.Container {
	return m.container
}

// MessageRecord is the serialized form of a Message.
type MessageRecord struct {
	Role     string            `json:"role"`
	Elements []elements.Record `json:"elements"`
	Metadata map[string]any    `json:"metadata"`
}

func (m *Message) ToRecord() MessageRecord {
	r := MessageRecord{
		Role:     string(m.Role),
		Elements: make([]elements.Record, 0, len(m.Elements)),
		Metadata: copyMap(m.Metadata),
	}
	for _, e := range m.Elements {
		r.Elements = append(r.Elements, e.ToRecord())
	}
	return r
}

func messageFromRecord(r MessageRecord) (*Message, error) {
	m := &Message{
		Role:     Role(r.Role),
		Elements: make([]*elements.Element, 0, len(r.Elements)),
		Metadata: copyMap(r.Metadata),
	}
	for _, er := range r.Elements {
		e, err := elements.FromRecord(er)
		if err != nil {
			return nil, err
		}
		m.Elements = append(m.Elements, e)
	}
	return m, nil
}

// Conversation is one named chat thread.
type Conversation struct {
	Name    string
	History []*Message
	Context map[string]any
}

// ConversationRecord is the serialized form of a Conversation. The name is the
// key it is stored under.
type ConversationRecord struct {
	History []MessageRecord `json:"history"`
	Context map[string]any  `json:"context"`
}

func copyMap(m map[string]any) map[string]any {
	ret := make(map[string]any, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
