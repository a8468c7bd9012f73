package chatbox

import (
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

const (
	feedbackKey       = "feedback"
	feedbackKwargsKey = "feedback_kwargs"
)

// ScoreScales maps a feedback type to its ordered scores.
var ScoreScales = map[string][]string{
	"thumbs": {"👍", "👎"},
	"faces":  {"😞", "🙁", "😐", "🙂", "😀"},
}

var scaleOrder = []string{"thumbs", "faces"}

// FeedbackConfig configures a feedback widget, e.g. feedback_type,
// optional_text_label, key or disable_with_score.
type FeedbackConfig map[string]any

// Feedback is what a user submitted through a feedback widget.
type Feedback struct {
	Type  string
	Score string
	Text  string
}

func (f Feedback) toMap() map[string]any {
	m := map[string]any{"type": f.Type, "score": f.Score}
	if f.Text != "" {
		m["text"] = f.Text
	}
	return m
}

func feedbackFromMap(m map[string]any) *Feedback {
	if m == nil {
		return nil
	}
	f := &Feedback{}
	f.Type, _ = m["type"].(string)
	f.Score, _ = m["score"].(string)
	f.Text, _ = m["text"].(string)
	return f
}

// ScoreIndex returns the position of score in the first scale containing it.
func ScoreIndex(score string) (int, bool) {
	for _, name := range scaleOrder {
		for i, s := range ScoreScales[name] {
			if s == score {
				return i, true
			}
		}
	}
	return 0, false
}

// ShowFeedback stores cfg on a message of the current conversation and shows
// a feedback widget in the message's turn when the surface offers one. The
// submitted feedback is returned, or nil when there is none yet.
func (cb *ChatBox) ShowFeedback(historyIndex int, cfg FeedbackConfig) (*Feedback, error) {
	conv := cb.current()
	hi, ok := resolveIndex(historyIndex, len(conv.History))
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "history index %d (len %d)", historyIndex, len(conv.History))
	}
	msg := conv.History[hi]
	msg.Metadata[feedbackKwargsKey] = copyMap(cfg)
	return cb.renderFeedback(msg, cfg)
}

func (cb *ChatBox) renderFeedback(msg *Message, cfg map[string]any) (*Feedback, error) {
	if cb.surface == nil {
		return nil, nil
	}
	if msg.container == nil {
		return nil, errors.Wrap(elements.ErrNotRendered, "feedback on a message that has not been drawn")
	}
	w, ok := msg.container.(surface.FeedbackWidget)
	if !ok {
		return nil, nil
	}
	res, err := w.RenderFeedback(copyMap(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "render feedback")
	}
	return feedbackFromMap(res), nil
}

// SetFeedback stores feedback on a message of the current conversation and
// returns the ordinal of its score. ok is false when the score belongs to no
// known scale.
func (cb *ChatBox) SetFeedback(feedback Feedback, historyIndex int) (int, bool, error) {
	conv := cb.current()
	hi, found := resolveIndex(historyIndex, len(conv.History))
	if !found {
		return 0, false, errors.Wrapf(ErrIndexOutOfRange, "history index %d (len %d)", historyIndex, len(conv.History))
	}
	conv.History[hi].Metadata[feedbackKey] = feedback.toMap()
	cb.publish(events.Event{
		Type:         events.TypeFeedbackSet,
		HistoryIndex: hi,
		Metadata:     feedback.toMap(),
	})
	idx, ok := ScoreIndex(feedback.Score)
	return idx, ok, nil
}

// FeedbackOf returns the feedback stored on a message, or nil.
func (cb *ChatBox) FeedbackOf(historyIndex int) (*Feedback, error) {
	conv := cb.current()
	hi, ok := resolveIndex(historyIndex, len(conv.History))
	if !ok {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "history index %d (len %d)", historyIndex, len(conv.History))
	}
	m, _ := conv.History[hi].Metadata[feedbackKey].(map[string]any)
	return feedbackFromMap(m), nil
}
