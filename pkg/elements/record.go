package elements

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

// Record is the serialized form of an Element. Placeholders are runtime only
// and never part of it.
type Record struct {
	Content           string         `json:"content"`
	Data              []byte         `json:"data,omitempty"`
	OutputKind        string         `json:"outputKind"`
	Title             string         `json:"title"`
	InStatusContainer bool           `json:"inStatusContainer"`
	Expanded          bool           `json:"expanded"`
	State             string         `json:"state"`
	Metadata          map[string]any `json:"metadata"`
	RenderOptions     map[string]any `json:"renderOptions"`
}

type constructor func(content string, opts ...Option) *Element

var constructors = map[Kind]constructor{
	KindMarkdown: NewMarkdown,
	KindText:     NewText,
	KindImage:    NewImage,
	KindAudio:    NewAudio,
	KindVideo:    NewVideo,
	KindJSON: func(content string, opts ...Option) *Element {
		return New(KindJSON, content, opts...)
	},
}

func (e *Element) ToRecord() Record {
	r := Record{
		Content:           e.Content,
		OutputKind:        string(e.Kind),
		Title:             e.Title,
		InStatusContainer: e.InStatusContainer,
		Expanded:          e.Expanded,
		State:             string(e.State),
		Metadata:          copyMap(e.Metadata),
		RenderOptions:     copyMap(e.Options),
	}
	if len(e.Data) > 0 {
		r.Data = append([]byte(nil), e.Data...)
	}
	return r
}

// FromRecord rebuilds an element, picking the constructor of its kind. Unknown
// kinds (custom registered ones included) decode into a generic element. The
// record's options are used verbatim; construction defaults are not re-applied.
func FromRecord(r Record) (*Element, error) {
	kind := Kind(strings.TrimSpace(r.OutputKind))
	if kind == "" {
		return nil, errors.Wrap(ErrInvalidRecord, "outputKind is empty")
	}
	state := surface.State(r.State)
	if state != "" && !state.Valid() {
		return nil, errors.Wrapf(ErrInvalidRecord, "unknown state %q", r.State)
	}

	ctor, ok := constructors[kind]
	if !ok {
		ctor = func(content string, opts ...Option) *Element {
			return New(kind, content, opts...)
		}
	}
	e := ctor(r.Content)
	e.Kind = Kind(r.OutputKind)
	e.Options = copyMap(r.RenderOptions)
	e.Metadata = copyMap(r.Metadata)
	e.Title = r.Title
	e.InStatusContainer = r.InStatusContainer
	e.Expanded = r.Expanded
	e.State = state
	if len(r.Data) > 0 {
		e.Data = append([]byte(nil), r.Data...)
	}
	return e, nil
}
