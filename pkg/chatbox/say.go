package chatbox

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/events"
)

func (cb *ChatBox) themeFor(role Role) string {
	if role == RoleUser {
		return cb.userTheme
	}
	return cb.assistantTheme
}

func (cb *ChatBox) avatarFor(role Role) string {
	if role == RoleUser {
		return cb.userAvatar
	}
	return cb.assistantAvatar
}

// prepare turns message input into elements. Strings become markdown elements;
// markdown elements get the role's theme when rich markdown is enabled.
func (cb *ChatBox) prepare(role Role, items []any) ([]*elements.Element, error) {
	ret := []*elements.Element{}
	var add func(item any) error
	add = func(item any) error {
		switch v := item.(type) {
		case nil:
			return nil
		case string:
			ret = append(ret, elements.NewMarkdown(v))
		case *elements.Element:
			if v == nil {
				return nil
			}
			if v.Rendered() || containsElement(ret, v) || cb.holds(v) {
				v = v.Clone()
			}
			ret = append(ret, v)
		case []*elements.Element:
			for _, e := range v {
				if err := add(e); err != nil {
					return err
				}
			}
		case []string:
			for _, s := range v {
				ret = append(ret, elements.NewMarkdown(s))
			}
		case []any:
			for _, x := range v {
				if err := add(x); err != nil {
					return err
				}
			}
		default:
			return errors.Wrapf(ErrUnsupportedInput, "%T", item)
		}
		return nil
	}
	for _, item := range items {
		if err := add(item); err != nil {
			return nil, err
		}
	}
	if cb.richMarkdown {
		theme := cb.themeFor(role)
		for _, e := range ret {
			if e.Kind == elements.KindMarkdown && theme != "" {
				e.Options["theme"] = theme
			}
		}
	}
	return ret, nil
}

// holds reports whether e is stored in any conversation of the session.
func (cb *ChatBox) holds(e *elements.Element) bool {
	b, ok := cb.loadBook()
	if !ok {
		return false
	}
	for _, c := range b.conversations {
		for _, msg := range c.History {
			if containsElement(msg.Elements, e) {
				return true
			}
		}
	}
	return false
}

func containsElement(els []*elements.Element, e *elements.Element) bool {
	for _, x := range els {
		if x == e {
			return true
		}
	}
	return false
}

// Say appends a message of role to the current conversation and draws every
// element into a fresh placeholder of a new turn. Nothing is stored when
// drawing fails.
func (cb *ChatBox) Say(role Role, metadata map[string]any, items ...any) ([]*elements.Element, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, errors.Errorf("unknown role %q", role)
	}
	conv := cb.current()
	els, err := cb.prepare(role, items)
	if err != nil {
		return nil, err
	}
	msg := &Message{Role: role, Elements: els, Metadata: copyMap(metadata)}
	if err := cb.drawMessage(msg); err != nil {
		return nil, err
	}
	conv.History = append(conv.History, msg)

	log.Debug().
		Str("session_key", cb.sessionKey).
		Str("conversation", conv.Name).
		Str("role", string(role)).
		Int("history_index", len(conv.History)-1).
		Int("elements", len(els)).
		Msg("message appended")
	cb.publish(events.Event{
		Type:         events.TypeMessageAppended,
		HistoryIndex: len(conv.History) - 1,
		Role:         string(role),
		Elements:     msg.ToRecord().Elements,
	})
	return append([]*elements.Element(nil), els...), nil
}

// UserSay appends a user message. See Say for the accepted inputs.
func (cb *ChatBox) UserSay(items ...any) ([]*elements.Element, error) {
	return cb.Say(RoleUser, nil, items...)
}

// AISay appends an assistant message. Called without items it creates a
// pending message that InsertMsg fills later.
func (cb *ChatBox) AISay(items ...any) ([]*elements.Element, error) {
	return cb.Say(RoleAssistant, nil, items...)
}

// drawMessage opens a turn for msg and draws its elements in order.
func (cb *ChatBox) drawMessage(msg *Message) error {
	if cb.surface == nil {
		return nil
	}
	c, err := cb.surface.OpenMessage(string(msg.Role), cb.avatarFor(msg.Role))
	if err != nil {
		return errors.Wrap(err, "open message")
	}
	for i, e := range msg.Elements {
		if _, err := e.Render(c, false); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	msg.container = c
	return nil
}

// OutputMessages draws the whole current conversation again with fresh
// placeholders, as a host does after reloading a session. Feedback widgets
// are shown again, disabled with the stored score.
func (cb *ChatBox) OutputMessages() error {
	conv := cb.current()
	if cb.surface == nil {
		return nil
	}
	for i, msg := range conv.History {
		if err := cb.drawMessage(msg); err != nil {
			return errors.Wrapf(err, "history %d", i)
		}
		cfg, ok := msg.Metadata[feedbackKwargsKey].(map[string]any)
		if !ok || len(cfg) == 0 {
			continue
		}
		cfg = copyMap(cfg)
		if fb, ok := msg.Metadata[feedbackKey].(map[string]any); ok {
			cfg["disable_with_score"] = fb["score"]
		}
		if _, err := cb.renderFeedback(msg, cfg); err != nil {
			return errors.Wrapf(err, "history %d feedback", i)
		}
	}
	log.Debug().Str("conversation", conv.Name).Int("messages", len(conv.History)).Msg("conversation drawn")
	return nil
}
