// Package chatbox keeps a chat transcript: named conversations made of
// messages made of renderable elements.
//
// A ChatBox stores its conversations in a session.State under its session key
// and draws through a surface.Surface. Every operation first makes sure the
// session storage exists, because a host may drop the state of a session
// between two interactions. Streaming is a caller loop around UpdateMsg that
// rewrites the same placeholder until the final chunk.
package chatbox

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/session"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

const (
	DefaultChatName        = "default"
	DefaultSessionKey      = "chat_history"
	DefaultUserAvatar      = "user"
	DefaultAssistantAvatar = "assistant"
	DefaultUserTheme       = "green"
	DefaultAssistantTheme  = "blue"
)

var (
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrNoConversationsLeft = errors.New("cannot delete the only conversation")
	ErrUnsupportedInput    = errors.New("unsupported message input")
	ErrInvalidSnapshot     = errors.New("invalid snapshot")
)

// book is what a ChatBox keeps in the session state.
type book struct {
	names         []string
	conversations map[string]*Conversation
}

func newBook() *book {
	return &book{conversations: map[string]*Conversation{}}
}

func (b *book) get(name string) (*Conversation, bool) {
	c, ok := b.conversations[name]
	return c, ok
}

func (b *book) put(c *Conversation) {
	if _, ok := b.conversations[c.Name]; !ok {
		b.names = append(b.names, c.Name)
	}
	b.conversations[c.Name] = c
}

func (b *book) remove(name string) {
	delete(b.conversations, name)
	for i, n := range b.names {
		if n == name {
			b.names = append(b.names[:i], b.names[i+1:]...)
			return
		}
	}
}

// ChatBox is the session level manager of one or more conversations.
type ChatBox struct {
	state   session.State
	surface surface.Surface
	sink    events.Sink

	chatName        string
	sessionKey      string
	userAvatar      string
	assistantAvatar string
	userTheme       string
	assistantTheme  string
	richMarkdown    bool
	greetingItems   []any
	greetings       []*elements.Element
}

type Option func(cb *ChatBox) error

func WithChatName(name string) Option {
	return func(cb *ChatBox) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("chat name is empty")
		}
		cb.chatName = name
		return nil
	}
}

func WithSessionKey(key string) Option {
	return func(cb *ChatBox) error {
		if strings.TrimSpace(key) == "" {
			return errors.New("session key is empty")
		}
		cb.sessionKey = key
		return nil
	}
}

func WithAvatars(user, assistant string) Option {
	return func(cb *ChatBox) error {
		cb.userAvatar = user
		cb.assistantAvatar = assistant
		return nil
	}
}

// WithThemes sets the markdown themes of user and assistant messages.
func WithThemes(user, assistant string) Option {
	return func(cb *ChatBox) error {
		cb.userTheme = user
		cb.assistantTheme = assistant
		return nil
	}
}

func WithRichMarkdown(enabled bool) Option {
	return func(cb *ChatBox) error {
		cb.richMarkdown = enabled
		return nil
	}
}

// WithGreetings sets the elements of the assistant message every conversation
// starts with. Accepts the same inputs as Say. Themes apply once all options
// have run.
func WithGreetings(items ...any) Option {
	return func(cb *ChatBox) error {
		cb.greetingItems = items
		return nil
	}
}

// WithEventSink publishes every transcript change to sink.
func WithEventSink(sink events.Sink) Option {
	return func(cb *ChatBox) error {
		cb.sink = sink
		return nil
	}
}

// New creates a chat box storing its conversations in st and drawing on surf.
// A nil st gets a private in-memory state. A nil surf keeps the transcript
// headless: nothing is drawn and in-place updates only change the stored state.
func New(st session.State, surf surface.Surface, opts ...Option) (*ChatBox, error) {
	if st == nil {
		st = session.NewMemoryState()
	}
	cb := &ChatBox{
		state:           st,
		surface:         surf,
		chatName:        DefaultChatName,
		sessionKey:      DefaultSessionKey,
		userAvatar:      DefaultUserAvatar,
		assistantAvatar: DefaultAssistantAvatar,
		userTheme:       DefaultUserTheme,
		assistantTheme:  DefaultAssistantTheme,
		richMarkdown:    true,
	}
	for _, opt := range opts {
		if err := opt(cb); err != nil {
			return nil, err
		}
	}
	if cb.greetingItems != nil {
		greetings, err := cb.prepare(RoleAssistant, cb.greetingItems)
		if err != nil {
			return nil, errors.Wrap(err, "greetings")
		}
		cb.greetings = greetings
	}
	return cb, nil
}

func (cb *ChatBox) SessionKey() string { return cb.sessionKey }

// Greetings returns copies of the greeting elements.
func (cb *ChatBox) Greetings() []*elements.Element {
	return cloneElements(cb.greetings)
}

// Inited reports whether the session state holds the conversations of this chat box.
func (cb *ChatBox) Inited() bool {
	_, ok := cb.loadBook()
	return ok
}

func (cb *ChatBox) loadBook() (*book, bool) {
	v, ok := cb.state.Get(cb.sessionKey)
	if !ok {
		return nil, false
	}
	b, ok := v.(*book)
	if !ok {
		log.Warn().Str("session_key", cb.sessionKey).Msgf("session key holds %T, reinitializing", v)
		return nil, false
	}
	return b, true
}

// InitSession makes sure the session storage exists. When it is missing, or
// clear is set, the current conversation is reset to the greetings.
func (cb *ChatBox) InitSession(clear bool) {
	b, ok := cb.loadBook()
	if ok && !clear {
		if _, exists := b.get(cb.chatName); !exists {
			cb.resetHistory(b, cb.chatName, true)
		}
		return
	}
	b = newBook()
	cb.state.Set(cb.sessionKey, b)
	cb.resetHistory(b, cb.chatName, true)
	log.Debug().Str("session_key", cb.sessionKey).Str("conversation", cb.chatName).Bool("clear", clear).Msg("session initialized")
}

func (cb *ChatBox) book() *book {
	cb.InitSession(false)
	b, _ := cb.loadBook()
	return b
}

func (cb *ChatBox) current() *Conversation {
	c, _ := cb.book().get(cb.chatName)
	return c
}

func (cb *ChatBox) resetHistory(b *book, name string, keepContext bool) *Conversation {
	ctx := map[string]any{}
	if old, ok := b.get(name); ok && keepContext && old.Context != nil {
		ctx = old.Context
	}
	c := &Conversation{Name: name, History: []*Message{}, Context: ctx}
	if len(cb.greetings) > 0 {
		c.History = append(c.History, &Message{
			Role:     RoleAssistant,
			Elements: cloneElements(cb.greetings),
			Metadata: map[string]any{},
		})
	}
	b.put(c)
	return c
}

// ResetHistory replaces the history of the named conversation (the current one
// when name is empty) with the greetings, creating the conversation if needed.
func (cb *ChatBox) ResetHistory(name string, keepContext bool) {
	b := cb.book()
	if name == "" {
		name = cb.chatName
	}
	cb.resetHistory(b, name, keepContext)
	cb.publish(events.Event{Type: events.TypeConversationReset, Conversation: name})
}

// UseChatName switches the current conversation, creating it when missing.
func (cb *ChatBox) UseChatName(name string) {
	if name == "" {
		name = DefaultChatName
	}
	b := cb.book()
	cb.chatName = name
	if _, ok := b.get(name); !ok {
		cb.resetHistory(b, name, true)
	}
}

// ChangeChatName renames origin (the current conversation when empty) to
// newName and makes it current. Nothing happens when origin does not exist or
// newName is taken.
func (cb *ChatBox) ChangeChatName(newName, origin string) bool {
	b := cb.book()
	if origin == "" {
		origin = cb.chatName
	}
	c, ok := b.get(origin)
	if !ok || newName == "" {
		return false
	}
	if _, taken := b.get(newName); taken {
		return false
	}
	for i, n := range b.names {
		if n == origin {
			b.names[i] = newName
		}
	}
	delete(b.conversations, origin)
	c.Name = newName
	b.conversations[newName] = c
	cb.chatName = newName
	cb.publish(events.Event{Type: events.TypeConversationRenamed, Conversation: newName, Metadata: map[string]any{"from": origin}})
	return true
}

// DelChatName removes a conversation and returns it. Deleting the current
// conversation makes the lexicographically smallest remaining name current.
// Deleting a missing conversation returns nil.
func (cb *ChatBox) DelChatName(name string) (*Conversation, error) {
	b := cb.book()
	c, ok := b.get(name)
	if !ok {
		return nil, nil
	}
	if len(b.conversations) == 1 {
		return nil, errors.Wrapf(ErrNoConversationsLeft, "delete %q", name)
	}
	b.remove(name)
	if cb.chatName == name {
		remaining := append([]string(nil), b.names...)
		sort.Strings(remaining)
		cb.chatName = remaining[0]
	}
	cb.publish(events.Event{Type: events.TypeConversationDeleted, Conversation: name})
	return c, nil
}

// ChatNames returns the conversation names in creation order.
func (cb *ChatBox) ChatNames() []string {
	return append([]string(nil), cb.book().names...)
}

func (cb *ChatBox) CurrentChatName() string {
	return cb.chatName
}

// Context returns the live context bag of the current conversation.
func (cb *ChatBox) Context() map[string]any {
	return cb.current().Context
}

// History returns the live history of the current conversation.
func (cb *ChatBox) History() []*Message {
	return cb.current().History
}

// OtherHistory returns the history of name (the current conversation when
// empty), or nil when it does not exist.
func (cb *ChatBox) OtherHistory(name string) []*Message {
	if c := cb.conversation(name); c != nil {
		return c.History
	}
	return nil
}

// OtherContext returns the context of name (the current conversation when
// empty), or nil when it does not exist.
func (cb *ChatBox) OtherContext(name string) map[string]any {
	if c := cb.conversation(name); c != nil {
		return c.Context
	}
	return nil
}

func (cb *ChatBox) conversation(name string) *Conversation {
	b := cb.book()
	if name == "" {
		name = cb.chatName
	}
	c, _ := b.get(name)
	return c
}

// ContextToSession copies the context of a conversation into the session
// state, restricted to include (when not empty) and never touching exclude.
func (cb *ChatBox) ContextToSession(name string, include, exclude []string) {
	for k, v := range cb.OtherContext(name) {
		if k == cb.sessionKey || !selected(k, include, exclude) {
			continue
		}
		cb.state.Set(k, v)
	}
}

// ContextFromSession copies session state values into the context of a
// conversation. The chat box's own session key is never copied.
func (cb *ChatBox) ContextFromSession(name string, include, exclude []string) {
	ctx := cb.OtherContext(name)
	if ctx == nil {
		return
	}
	for _, k := range cb.state.Keys() {
		if k == cb.sessionKey || !selected(k, include, exclude) {
			continue
		}
		if v, ok := cb.state.Get(k); ok {
			ctx[k] = v
		}
	}
}

func selected(key string, include, exclude []string) bool {
	if len(include) > 0 && !contains(include, key) {
		return false
	}
	return !contains(exclude, key)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (cb *ChatBox) publish(ev events.Event) {
	if cb.sink == nil {
		return
	}
	ev.SessionKey = cb.sessionKey
	if ev.Conversation == "" {
		ev.Conversation = cb.chatName
	}
	if err := cb.sink.Publish(context.Background(), ev); err != nil {
		log.Warn().Err(err).
			Str("session_key", cb.sessionKey).
			Str("type", string(ev.Type)).
			Msg("failed to publish chat event")
	}
}

func cloneElements(in []*elements.Element) []*elements.Element {
	ret := make([]*elements.Element, 0, len(in))
	for _, e := range in {
		ret = append(ret, e.Clone())
	}
	return ret
}

// resolveIndex maps a possibly negative index into [0,n).
func resolveIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
