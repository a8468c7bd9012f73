// Package elements contains the renderable units a chat message is made of.
//
// An Element carries a payload (text or bytes), an output kind that selects the
// render function, free-form render options and an optional status frame
// (title, expanded, state). Rendering acquires a placeholder from a surface
// container the first time; later renders can reuse that placeholder so the
// content is replaced where it already is.
package elements

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

// Kind selects the render function of an element.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindJSON     Kind = "json"
)

var (
	ErrUnsupportedOutputKind = errors.New("unsupported output kind")
	ErrNotRendered           = errors.New("element has not been rendered")
	ErrInvalidRecord         = errors.New("invalid element record")
)

// Element is one renderable unit of a chat message.
type Element struct {
	Content string
	Data    []byte
	Kind    Kind
	Options map[string]any

	Title             string
	InStatusContainer bool
	Expanded          bool
	State             surface.State

	Metadata map[string]any

	placeholder surface.Placeholder
}

// Option configures an element at construction.
type Option func(e *Element)

// defaultOptions are applied at construction only, never when decoding a record.
var defaultOptions = map[Kind]map[string]any{
	KindMarkdown: {"unsafe_allow_html": true},
	KindAudio:    {"format": "mp3"},
	KindVideo:    {"format": "mp4"},
	KindImage:    {"use_column_width": "auto"},
}

// displayOptionKeys are the kind specific options that travel with the framing
// when an element is replaced in place.
var displayOptionKeys = map[Kind][]string{
	KindMarkdown: {"theme"},
}

// New creates an element of an arbitrary kind, including custom registered ones.
func New(kind Kind, content string, opts ...Option) *Element {
	e := &Element{
		Content:  content,
		Kind:     kind,
		Options:  map[string]any{},
		State:    surface.StateRunning,
		Metadata: map[string]any{},
	}
	for k, v := range defaultOptions[kind] {
		e.Options[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func NewMarkdown(content string, opts ...Option) *Element { return New(KindMarkdown, content, opts...) }
func NewText(content string, opts ...Option) *Element     { return New(KindText, content, opts...) }
func NewImage(source string, opts ...Option) *Element     { return New(KindImage, source, opts...) }
func NewAudio(source string, opts ...Option) *Element     { return New(KindAudio, source, opts...) }
func NewVideo(source string, opts ...Option) *Element     { return New(KindVideo, source, opts...) }

// NewBinary creates an element whose payload is raw bytes, e.g. an encoded image.
func NewBinary(kind Kind, data []byte, opts ...Option) *Element {
	e := New(kind, "", opts...)
	e.Data = append([]byte(nil), data...)
	return e
}

// NewJSON creates a json element holding the encoded form of v.
func NewJSON(v any, opts ...Option) (*Element, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode json element")
	}
	return New(KindJSON, string(b), opts...), nil
}

func WithTitle(title string) Option {
	return func(e *Element) { e.Title = title }
}

// WithStatus wraps the element in a status container.
func WithStatus(title string, expanded bool, state surface.State) Option {
	return func(e *Element) {
		e.InStatusContainer = true
		e.Title = title
		e.Expanded = expanded
		e.State = state
	}
}

// InStatusContainer toggles the status frame without touching the other framing fields.
func InStatusContainer(in bool) Option {
	return func(e *Element) { e.InStatusContainer = in }
}

func WithExpanded(expanded bool) Option {
	return func(e *Element) { e.Expanded = expanded }
}

func WithState(state surface.State) Option {
	return func(e *Element) { e.State = state }
}

// WithOption sets a render option forwarded verbatim to the render function.
func WithOption(key string, value any) Option {
	return func(e *Element) { e.Options[key] = value }
}

func WithMetadata(key string, value any) Option {
	return func(e *Element) { e.Metadata[key] = value }
}

func WithTheme(theme string) Option {
	return WithOption("theme", theme)
}

// Placeholder returns the slot the element was last rendered into, or nil.
func (e *Element) Placeholder() surface.Placeholder {
	return e.placeholder
}

func (e *Element) Rendered() bool {
	return e.placeholder != nil
}

// Clone returns an unrendered copy of e. Maps are copied one level deep.
func (e *Element) Clone() *Element {
	c := *e
	c.Data = append([]byte(nil), e.Data...)
	c.Options = copyMap(e.Options)
	c.Metadata = copyMap(e.Metadata)
	c.placeholder = nil
	return &c
}

func (e *Element) String() string {
	return string(e.Kind) + " element: " + e.Content
}

func copyMap(m map[string]any) map[string]any {
	ret := make(map[string]any, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
