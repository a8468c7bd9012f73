package chatbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/session"
	"github.com/go-go-golems/chatbox/pkg/surface"
	"github.com/go-go-golems/chatbox/pkg/surface/memory"
)

func newTestBox(t *testing.T, opts ...Option) (*ChatBox, *memory.Surface) {
	t.Helper()
	surf := memory.New()
	cb, err := New(session.NewMemoryState(), surf, opts...)
	require.NoError(t, err)
	return cb, surf
}

type recordingSink struct {
	events []events.Event
}

func (r *recordingSink) Publish(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestChatBox_GreetingQuestionStreamedAnswer(t *testing.T) {
	cb, _ := newTestBox(t, WithGreetings("hi"))

	_, err := cb.UserSay("2+2?")
	require.NoError(t, err)
	_, err = cb.AISay("")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		e, err := cb.UpdateMsg("4")
		require.NoError(t, err)
		require.True(t, elements.HasCursor(e.Content))
	}
	_, err = cb.UpdateMsg("4", Streaming(false))
	require.NoError(t, err)

	history := cb.History()
	require.Len(t, history, 3)
	require.Equal(t, RoleAssistant, history[0].Role)
	require.Equal(t, "hi", history[0].Elements[0].Content)
	require.Equal(t, RoleUser, history[1].Role)
	require.Equal(t, "2+2?", history[1].Elements[0].Content)
	require.Equal(t, RoleAssistant, history[2].Role)
	require.Equal(t, "4", history[2].Elements[0].Content)

	js, err := cb.ToJSON(true)
	require.NoError(t, err)

	reloaded, err := New(session.NewMemoryState(), nil)
	require.NoError(t, err)
	require.NoError(t, reloaded.FromJSON(js))
	js2, err := reloaded.ToJSON(true)
	require.NoError(t, err)
	require.Equal(t, string(js), string(js2))
}

func TestChatBox_UpdateKeepsPlaceholder(t *testing.T) {
	cb, surf := newTestBox(t)

	els, err := cb.AISay("a", "b", "c")
	require.NoError(t, err)
	require.Equal(t, 3, surf.SlotCount())
	before := els[1].Placeholder().ID()

	next, err := cb.UpdateMsg("B", AtElement(1), AtHistory(-1), Streaming(false))
	require.NoError(t, err)
	require.Equal(t, before, next.Placeholder().ID())
	require.Equal(t, 3, surf.SlotCount())

	stored := cb.History()[0].Elements
	require.Equal(t, "a", stored[0].Content)
	require.Equal(t, "B", stored[1].Content)
	require.Equal(t, "c", stored[2].Content)
	require.Same(t, next, stored[1])

	// the caller's element is untouched and gave its slot up
	require.Equal(t, "b", els[1].Content)
	require.False(t, els[1].Rendered())

	slot := surf.Turns()[0].Slots[1]
	require.Equal(t, "B", slot.Block.Text)
	require.Equal(t, 2, slot.Writes)
}

func TestChatBox_NegativeElementIndexWraps(t *testing.T) {
	cb, _ := newTestBox(t)

	els, err := cb.AISay("a", "b", "c")
	require.NoError(t, err)
	last := els[2].Placeholder().ID()

	_, err = cb.UpdateMsg("x", AtElement(-1), Streaming(false))
	require.NoError(t, err)
	_, err = cb.UpdateMsg("y", AtElement(2), Streaming(false))
	require.NoError(t, err)

	stored := cb.History()[0].Elements[2]
	require.Equal(t, "y", stored.Content)
	require.Equal(t, last, stored.Placeholder().ID())
}

func TestChatBox_StreamingIsMonotonic(t *testing.T) {
	cb, surf := newTestBox(t)
	text := "streamed answer"

	_, err := cb.AISay("")
	require.NoError(t, err)

	prev := 0
	for k := 1; k <= len(text); k++ {
		_, err := cb.UpdateMsg(text[:k])
		require.NoError(t, err)
		content := cb.History()[0].Elements[0].Content
		require.True(t, elements.HasCursor(content))
		require.GreaterOrEqual(t, len(content), prev)
		prev = len(content)
	}
	_, err = cb.UpdateMsg(text, Streaming(false))
	require.NoError(t, err)

	content := cb.History()[0].Elements[0].Content
	require.Equal(t, text, content)
	require.False(t, elements.HasCursor(content))
	require.Equal(t, 1, surf.SlotCount())
	require.Equal(t, len(text)+2, surf.Turns()[0].Slots[0].Writes)
}

func TestChatBox_UpdateKeepsStatusFraming(t *testing.T) {
	cb, surf := newTestBox(t)

	_, err := cb.AISay(elements.NewMarkdown("", elements.WithStatus("thinking", true, surface.StateRunning)))
	require.NoError(t, err)

	e, err := cb.UpdateMsg("done", Streaming(false), State(surface.StateComplete), Expanded(false))
	require.NoError(t, err)
	require.True(t, e.InStatusContainer)
	require.Equal(t, "thinking", e.Title)
	require.Equal(t, surface.StateComplete, e.State)
	require.False(t, e.Expanded)
	require.Equal(t, "blue", e.Options["theme"])

	slot := surf.Turns()[0].Slots[0]
	require.NotNil(t, slot.Frame)
	require.Equal(t, "thinking", slot.Frame.Title)
	require.Equal(t, surface.StateComplete, slot.Frame.State)

	// framing only
	e, err = cb.UpdateMsg(nil, Title("finished"))
	require.NoError(t, err)
	require.Equal(t, "done", e.Content)
	require.Equal(t, "finished", e.Title)
	require.Equal(t, "finished", slot.Frame.Title)
}

func TestChatBox_UpdateEdgeCases(t *testing.T) {
	cb, _ := newTestBox(t)

	e, err := cb.UpdateMsg("x")
	require.NoError(t, err)
	require.Nil(t, e)

	_, err = cb.AISay()
	require.NoError(t, err)
	e, err = cb.UpdateMsg("x")
	require.NoError(t, err)
	require.Nil(t, e)

	_, err = cb.UserSay("q")
	require.NoError(t, err)
	_, err = cb.UpdateMsg("x", AtHistory(5))
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = cb.UpdateMsg("x", AtElement(-3))
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = cb.UpdateMsg(42)
	require.True(t, errors.Is(err, ErrUnsupportedInput))

	require.Equal(t, "q", cb.History()[1].Elements[0].Content)
}

func TestChatBox_UpdateMergesMetadata(t *testing.T) {
	cb, _ := newTestBox(t)

	_, err := cb.Say(RoleAssistant, map[string]any{"a": 1}, "x")
	require.NoError(t, err)
	_, err = cb.UpdateMsg("y", MergeMetadata(map[string]any{"b": 2}))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, cb.History()[0].Metadata)
}

func TestChatBox_InsertMsg(t *testing.T) {
	cb, surf := newTestBox(t)

	_, err := cb.AISay()
	require.NoError(t, err)

	first, err := cb.InsertMsg("first")
	require.NoError(t, err)
	zero, err := cb.InsertMsg("zero", AtPosition(0))
	require.NoError(t, err)
	middle, err := cb.InsertMsg("middle", AtPosition(-2))
	require.NoError(t, err)

	stored := cb.History()[0].Elements
	require.Len(t, stored, 3)
	require.Equal(t, "zero", stored[0].Content)
	require.Equal(t, "middle", stored[1].Content)
	require.Equal(t, "first", stored[2].Content)

	slots := surf.Turns()[0].Slots
	require.Equal(t, zero.Placeholder().ID(), slots[0].ID())
	require.Equal(t, middle.Placeholder().ID(), slots[1].ID())
	require.Equal(t, first.Placeholder().ID(), slots[2].ID())

	_, err = cb.InsertMsg("x", AtPosition(5))
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = cb.InsertMsg("x", InHistory(3))
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
	require.Len(t, cb.History()[0].Elements, 3)
}

func TestChatBox_InsertIntoUndrawnMessage(t *testing.T) {
	cb, _ := newTestBox(t, WithGreetings("hi"))

	_, err := cb.InsertMsg("x", InHistory(0))
	require.True(t, errors.Is(err, elements.ErrNotRendered))

	require.NoError(t, cb.OutputMessages())
	_, err = cb.InsertMsg("x", InHistory(0))
	require.NoError(t, err)
	require.Len(t, cb.History()[0].Elements, 2)
}

func TestChatBox_SayRejectsBadInput(t *testing.T) {
	cb, _ := newTestBox(t)

	_, err := cb.UserSay(42)
	require.True(t, errors.Is(err, ErrUnsupportedInput))

	_, err = cb.AISay(elements.New("nope", "x"))
	require.True(t, errors.Is(err, elements.ErrUnsupportedOutputKind))
	require.Empty(t, cb.History())

	els, err := cb.UserSay([]string{"a", "b"}, elements.NewText("c"), []any{"d"})
	require.NoError(t, err)
	require.Len(t, els, 4)
	require.Equal(t, "green", els[0].Options["theme"])
	require.Equal(t, elements.KindText, els[2].Kind)

	els, err = cb.UserSay("")
	require.NoError(t, err)
	require.Len(t, els, 1)
	require.Equal(t, elements.KindMarkdown, els[0].Kind)
}

func TestChatBox_RichMarkdownOff(t *testing.T) {
	cb, _ := newTestBox(t, WithRichMarkdown(false))
	els, err := cb.UserSay("x")
	require.NoError(t, err)
	_, ok := els[0].Options["theme"]
	require.False(t, ok)
}

func TestChatBox_OutputMessagesRedraws(t *testing.T) {
	cb, surf := newTestBox(t, WithGreetings("hi"))

	_, err := cb.UserSay("q")
	require.NoError(t, err)
	_, err = cb.AISay("a", elements.NewText("b", elements.WithStatus("tool", false, surface.StateComplete)))
	require.NoError(t, err)

	surf.Reset()
	require.NoError(t, cb.OutputMessages())

	turns := surf.Turns()
	require.Len(t, turns, 3)
	require.Equal(t, "assistant", turns[0].Role)
	require.Equal(t, "user", turns[1].Role)
	require.Equal(t, DefaultUserAvatar, turns[1].Avatar)
	require.Len(t, turns[2].Slots, 2)
	require.Equal(t, "tool", turns[2].Slots[1].Frame.Title)
	require.Nil(t, turns[2].Slots[0].Frame)
}

func TestChatBox_Conversations(t *testing.T) {
	cb, _ := newTestBox(t)

	cb.UseChatName("other")
	require.Equal(t, "other", cb.CurrentChatName())
	require.Equal(t, []string{"default", "other"}, cb.ChatNames())
	_, err := cb.UserSay("in other")
	require.NoError(t, err)

	cb.UseChatName("default")
	require.Empty(t, cb.History())
	require.Len(t, cb.OtherHistory("other"), 1)
	require.Nil(t, cb.OtherHistory("missing"))

	require.True(t, cb.ChangeChatName("renamed", "other"))
	require.Equal(t, "renamed", cb.CurrentChatName())
	require.Equal(t, []string{"default", "renamed"}, cb.ChatNames())
	require.False(t, cb.ChangeChatName("default", "renamed"))
	require.False(t, cb.ChangeChatName("x", "missing"))

	removed, err := cb.DelChatName("renamed")
	require.NoError(t, err)
	require.Len(t, removed.History, 1)
	require.Equal(t, "default", cb.CurrentChatName())

	removed, err = cb.DelChatName("missing")
	require.NoError(t, err)
	require.Nil(t, removed)

	_, err = cb.DelChatName("default")
	require.True(t, errors.Is(err, ErrNoConversationsLeft))
	require.Equal(t, []string{"default"}, cb.ChatNames())
}

func TestChatBox_DeleteCurrentFallsBackToSmallestName(t *testing.T) {
	cb, _ := newTestBox(t)
	cb.UseChatName("b")
	cb.UseChatName("a")
	cb.UseChatName("c")

	_, err := cb.DelChatName("c")
	require.NoError(t, err)
	require.Equal(t, "a", cb.CurrentChatName())
}

func TestChatBox_ResetHistory(t *testing.T) {
	cb, _ := newTestBox(t, WithGreetings("hi"))

	cb.Context()["k"] = 1
	_, err := cb.UserSay("q")
	require.NoError(t, err)

	cb.ResetHistory("", true)
	require.Len(t, cb.History(), 1)
	require.Equal(t, 1, cb.Context()["k"])

	cb.ResetHistory("", false)
	require.Empty(t, cb.Context())

	cb.UseChatName("x")
	a := cb.OtherHistory("default")[0].Elements[0]
	b := cb.History()[0].Elements[0]
	require.NotSame(t, a, b)
	require.Equal(t, a.Content, b.Content)
}

func TestChatBox_SurvivesDroppedSession(t *testing.T) {
	st := session.NewMemoryState()
	cb, err := New(st, memory.New(), WithGreetings("hi"))
	require.NoError(t, err)

	_, err = cb.UserSay("q")
	require.NoError(t, err)
	require.True(t, cb.Inited())

	st.Delete(cb.SessionKey())
	require.False(t, cb.Inited())
	require.Len(t, cb.History(), 1)
	require.True(t, cb.Inited())

	cb.InitSession(false)
	require.Len(t, cb.History(), 1)
	_, err = cb.UserSay("again")
	require.NoError(t, err)
	cb.InitSession(true)
	require.Len(t, cb.History(), 1)
}

func TestChatBox_ContextAndSessionState(t *testing.T) {
	st := session.NewMemoryState()
	cb, err := New(st, nil)
	require.NoError(t, err)

	cb.Context()["a"] = 1
	cb.Context()["b"] = 2
	cb.ContextToSession("", []string{"a"}, nil)
	v, ok := st.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = st.Get("b")
	require.False(t, ok)

	st.Set("z", "v")
	st.Set("a", 10)
	cb.ContextFromSession("", nil, []string{"a"})
	require.Equal(t, "v", cb.Context()["z"])
	require.Equal(t, 1, cb.Context()["a"])
	_, ok = cb.Context()[DefaultSessionKey]
	require.False(t, ok)
	require.Nil(t, cb.OtherContext("missing"))
}

func TestChatBox_FilterHistory(t *testing.T) {
	cb, _ := newTestBox(t)
	for _, s := range []string{"1", "2", "3"} {
		_, err := cb.UserSay("q" + s)
		require.NoError(t, err)
		_, err = cb.AISay("a" + s)
		require.NoError(t, err)
	}

	got := cb.FilterHistory(HistoryLen(2))
	require.Equal(t, []HistoryEntry{
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
		{Role: RoleUser, Content: "q3"},
		{Role: RoleAssistant, Content: "a3"},
	}, got)

	require.Len(t, cb.FilterHistory(), 6)
	require.Empty(t, cb.FilterHistory(HistoryLen(0)))

	indices := FilterHistoryFunc(cb, func(msg *Message, index int) (int, bool) {
		return index, msg.Role == RoleUser
	}, nil)
	require.Equal(t, []int{5, 3, 1}, indices)

	newest := cb.FilterHistory(StopWhen(StopAtTokenBudget(0)))
	require.Equal(t, []HistoryEntry{{Role: RoleAssistant, Content: "a3"}}, newest)
}

func TestChatBox_DefaultFilterKeepsText(t *testing.T) {
	cb, _ := newTestBox(t)
	_, err := cb.AISay("a", elements.NewImage("https://example.com/x.png"), elements.NewText("b"))
	require.NoError(t, err)

	got := cb.FilterHistory()
	require.Equal(t, []HistoryEntry{{Role: RoleAssistant, Content: "a\n\nb"}}, got)

	cb.UseChatName("empty")
	require.Empty(t, cb.FilterHistory())
	require.Len(t, cb.FilterHistory(FromChat("default")), 1)
}

func TestChatBox_ExportMarkdown(t *testing.T) {
	cb, _ := newTestBox(t)
	_, err := cb.UserSay("hi\nthere")
	require.NoError(t, err)
	_, err = cb.AISay("yo", "second")
	require.NoError(t, err)

	lines := cb.ExportMarkdown()
	require.Len(t, lines, 4)
	require.Equal(t, "<style> td, th {border: none!important;}</style>\n|  |  |\n", lines[0])
	require.Equal(t, "|--|--|\n", lines[1])
	require.Equal(t,
		`|<div style="background-color:#DCFDC8">User</div>|<div style="background-color:#DCFDC8">hi<br>there</div>|`+"\n",
		lines[2])
	require.Equal(t,
		`|<div style="background-color:#E0F7FA">AI</div>|<div style="background-color:#E0F7FA">yo</div><br><br><div style="background-color:#E0F7FA">second</div>|`+"\n",
		lines[3])

	lines = cb.ExportMarkdown(ExportCallback(func(msg *Message) string {
		return string(msg.Role) + "\n"
	}))
	require.Equal(t, []string{"user\n", "assistant\n"}, lines[2:])
}

func TestChatBox_Feedback(t *testing.T) {
	cb, surf := newTestBox(t)
	surf.FeedbackResponse = map[string]any{"type": "thumbs", "score": "👎"}

	_, err := cb.AISay("a")
	require.NoError(t, err)

	fb, err := cb.ShowFeedback(-1, FeedbackConfig{"feedback_type": "thumbs"})
	require.NoError(t, err)
	require.NotNil(t, fb)
	require.Equal(t, "👎", fb.Score)
	require.Equal(t, map[string]any{"feedback_type": "thumbs"}, cb.History()[0].Metadata["feedback_kwargs"])

	idx, ok, err := cb.SetFeedback(*fb, -1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	idx, ok, err = cb.SetFeedback(Feedback{Type: "faces", Score: "🙂", Text: "nice"}, -1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, idx)

	_, ok, err = cb.SetFeedback(Feedback{Score: "?"}, -1)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = cb.SetFeedback(Feedback{Score: "🙂", Text: "nice"}, -1)
	require.NoError(t, err)
	stored, err := cb.FeedbackOf(-1)
	require.NoError(t, err)
	require.Equal(t, "nice", stored.Text)

	surf.Reset()
	require.NoError(t, cb.OutputMessages())
	turn := surf.Turns()[0]
	require.Len(t, turn.Feedback, 1)
	require.Equal(t, "🙂", turn.Feedback[0]["disable_with_score"])
	_, polluted := cb.History()[0].Metadata["feedback_kwargs"].(map[string]any)["disable_with_score"]
	require.False(t, polluted)

	_, err = cb.ShowFeedback(4, FeedbackConfig{})
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestChatBox_RoundTripPreservesEverything(t *testing.T) {
	cb, err := New(session.NewMemoryState(), nil, WithGreetings("welcome"))
	require.NoError(t, err)

	js, err := elements.NewJSON(map[string]any{"n": 1})
	require.NoError(t, err)
	_, err = cb.UserSay("q", elements.NewBinary(elements.KindImage, []byte{1, 2, 3}))
	require.NoError(t, err)
	_, err = cb.Say(RoleAssistant, map[string]any{"source": "test"},
		elements.NewText("thinking", elements.WithStatus("step 1", true, surface.StateComplete)),
		js,
		elements.New("chart", "data", elements.WithOption("height", 3), elements.WithMetadata("id", "c1")),
	)
	require.NoError(t, err)
	_, err = cb.InsertMsg("late", AtPosition(0))
	require.NoError(t, err)
	_, err = cb.UpdateMsg("final", AtElement(1), Streaming(false))
	require.NoError(t, err)
	cb.Context()["topic"] = "math"
	cb.UseChatName("second")
	_, err = cb.AISay()
	require.NoError(t, err)

	snapshot := cb.ToDict()
	other, err := New(session.NewMemoryState(), nil)
	require.NoError(t, err)
	require.NoError(t, other.FromDict(snapshot))
	require.Equal(t, snapshot, other.ToDict())
	require.Equal(t, "second", other.CurrentChatName())
	require.Equal(t, []string{"default", "second"}, other.ChatNames())

	msg := other.OtherHistory("default")[2]
	require.Equal(t, "late", msg.Elements[0].Content)
	require.Equal(t, "final", msg.Elements[1].Content)
	require.Equal(t, "step 1", msg.Elements[1].Title)
	require.Equal(t, surface.StateComplete, msg.Elements[1].State)
	require.Equal(t, elements.Kind("chart"), msg.Elements[3].Kind)
	require.Equal(t, []byte{1, 2, 3}, other.OtherHistory("default")[1].Elements[1].Data)
}

func TestChatBox_JSONRoundTripKeepsLargeIntegers(t *testing.T) {
	cb, err := New(session.NewMemoryState(), nil)
	require.NoError(t, err)
	_, err = cb.Say(RoleAssistant, map[string]any{"id": int64(1152921504606846977)},
		elements.NewText("x", elements.WithOption("max", int64(9007199254740993))))
	require.NoError(t, err)
	cb.Context()["seq"] = uint64(18446744073709551615)

	js, err := cb.ToJSON(false)
	require.NoError(t, err)
	require.Contains(t, string(js), `"id":1152921504606846977`)

	other, err := New(session.NewMemoryState(), nil)
	require.NoError(t, err)
	require.NoError(t, other.FromJSON(js))
	js2, err := other.ToJSON(false)
	require.NoError(t, err)
	require.Equal(t, string(js), string(js2))
	require.Contains(t, string(js2), `"max":9007199254740993`)
	require.Contains(t, string(js2), `"seq":18446744073709551615`)
}

func TestChatBox_SharedElementIsStoredOnce(t *testing.T) {
	cb, surf := newTestBox(t)
	e := elements.NewText("shared")

	_, err := cb.UserSay(e)
	require.NoError(t, err)
	second, err := cb.UserSay(e)
	require.NoError(t, err)
	require.NotSame(t, e, second[0])

	_, err = cb.UpdateMsg("new", AtHistory(0), Streaming(false))
	require.NoError(t, err)

	h := cb.History()
	require.Equal(t, "new", h[0].Elements[0].Content)
	require.Equal(t, "shared", h[1].Elements[0].Content)
	turns := surf.Turns()
	require.Equal(t, "new", turns[0].Slots[0].Block.Text)
	require.Equal(t, "shared", turns[1].Slots[0].Block.Text)
	require.Equal(t, 1, turns[1].Slots[0].Writes)

	twice, err := cb.AISay(e, e)
	require.NoError(t, err)
	require.NotSame(t, twice[0], twice[1])
}

func TestChatBox_SayReturnsOwnSlice(t *testing.T) {
	cb, _ := newTestBox(t)
	els, err := cb.AISay("a", "b")
	require.NoError(t, err)
	els[0] = elements.NewText("changed")
	require.Equal(t, "a", cb.History()[0].Elements[0].Content)
}

func TestChatBox_GreetingsUseThemesSetAfterThem(t *testing.T) {
	cb, err := New(session.NewMemoryState(), nil, WithGreetings("hi"), WithThemes("u", "a"))
	require.NoError(t, err)
	g := cb.Greetings()
	require.Len(t, g, 1)
	require.Equal(t, "a", g[0].Options["theme"])
	require.Equal(t, "a", cb.History()[0].Elements[0].Options["theme"])
}

func TestChatBox_FromJSONFailsWithoutTouchingState(t *testing.T) {
	cb, _ := newTestBox(t)
	_, err := cb.UserSay("keep me")
	require.NoError(t, err)

	err = cb.FromJSON([]byte(`{"sessionKey": "x"}`))
	require.True(t, errors.Is(err, ErrInvalidSnapshot))
	err = cb.FromJSON([]byte(`not json`))
	require.True(t, errors.Is(err, ErrInvalidSnapshot))

	bad := cb.ToDict()
	bad.Conversations["broken"] = ConversationRecord{History: []MessageRecord{{
		Role:     "user",
		Elements: []elements.Record{{Content: "x"}},
	}}}
	err = cb.FromDict(bad)
	require.True(t, errors.Is(err, ErrInvalidSnapshot))

	require.Equal(t, []string{"default"}, cb.ChatNames())
	require.Equal(t, "keep me", cb.History()[0].Elements[0].Content)
}

func TestChatBox_PublishesEvents(t *testing.T) {
	sink := &recordingSink{}
	cb, _ := newTestBox(t, WithEventSink(sink))

	_, err := cb.AISay("")
	require.NoError(t, err)
	_, err = cb.UpdateMsg("x")
	require.NoError(t, err)
	_, err = cb.InsertMsg("y")
	require.NoError(t, err)
	cb.ResetHistory("", true)

	require.Len(t, sink.events, 4)
	require.Equal(t, events.TypeMessageAppended, sink.events[0].Type)
	require.Equal(t, events.TypeElementUpdated, sink.events[1].Type)
	require.Equal(t, "x"+elements.Cursor, sink.events[1].Elements[0].Content)
	require.Equal(t, events.TypeElementInserted, sink.events[2].Type)
	require.Equal(t, 1, sink.events[2].ElementIndex)
	require.Equal(t, events.TypeConversationReset, sink.events[3].Type)
	for _, ev := range sink.events {
		require.Equal(t, DefaultSessionKey, ev.SessionKey)
		require.Equal(t, DefaultChatName, ev.Conversation)
	}
}
