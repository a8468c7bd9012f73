// Package events publishes transcript changes so that other parts of a host
// (persistence, remote viewers, audit) can follow a chat box without polling it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/elements"
)

type Type string

const (
	TypeMessageAppended     Type = "message.appended"
	TypeElementUpdated      Type = "element.updated"
	TypeElementInserted     Type = "element.inserted"
	TypeConversationReset   Type = "conversation.reset"
	TypeConversationDeleted Type = "conversation.deleted"
	TypeConversationRenamed Type = "conversation.renamed"
	TypeSnapshotLoaded      Type = "snapshot.loaded"
	TypeFeedbackSet         Type = "feedback.set"
)

// Event describes one transcript change. Indices are resolved (non-negative).
type Event struct {
	Type         Type              `json:"type"`
	SessionKey   string            `json:"session_key"`
	Conversation string            `json:"conversation"`
	HistoryIndex int               `json:"history_index"`
	ElementIndex int               `json:"element_index"`
	Role         string            `json:"role,omitempty"`
	Elements     []elements.Record `json:"elements,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	TimeMs       int64             `json:"time_ms"`
}

// Sink receives transcript events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// TopicFor returns the topic events of a session key are published on.
func TopicFor(sessionKey string) string { return "chatbox." + sessionKey }

// WatermillSink publishes events as JSON messages on a Watermill publisher.
type WatermillSink struct {
	pub   message.Publisher
	topic string
}

var _ Sink = &WatermillSink{}

// NewWatermillSink publishes on topic; an empty topic derives it from each
// event's session key.
func NewWatermillSink(pub message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{pub: pub, topic: topic}
}

func (s *WatermillSink) Publish(ctx context.Context, ev Event) error {
	if s == nil || s.pub == nil {
		return errors.New("watermill sink: publisher is nil")
	}
	if ev.TimeMs == 0 {
		ev.TimeMs = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "watermill sink: marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if ctx != nil {
		msg.SetContext(ctx)
	}
	topic := s.topic
	if topic == "" {
		topic = TopicFor(ev.SessionKey)
	}
	if err := s.pub.Publish(topic, msg); err != nil {
		return errors.Wrapf(err, "watermill sink: publish %s", ev.Type)
	}
	return nil
}

func (s *WatermillSink) Close() error {
	if s == nil || s.pub == nil {
		return nil
	}
	return s.pub.Close()
}

// Decode parses a message payload produced by WatermillSink.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	if ev.Type == "" {
		return Event{}, errors.New("decode event: missing type")
	}
	return ev, nil
}
