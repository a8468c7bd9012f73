package elements

import "github.com/go-go-golems/chatbox/pkg/surface"

// FramingOverrides replaces individual framing fields. Nil fields are left alone.
type FramingOverrides struct {
	Title    *string
	Expanded *bool
	State    *surface.State
}

func (o FramingOverrides) empty() bool {
	return o.Title == nil && o.Expanded == nil && o.State == nil
}

// WithFraming returns a new unrendered element carrying the payload of base and
// the framing of source (title, status container flag, expanded, state and the
// kind's display options such as the markdown theme), with overrides applied
// last. Neither base nor source is modified. A nil source keeps base's framing.
func WithFraming(base, source *Element, o FramingOverrides) *Element {
	ret := base.Clone()
	if source != nil {
		ret.Title = source.Title
		ret.InStatusContainer = source.InStatusContainer
		ret.Expanded = source.Expanded
		ret.State = source.State
		for _, key := range displayOptionKeys[ret.Kind] {
			if v, ok := source.Options[key]; ok {
				ret.Options[key] = v
			}
		}
	}
	if o.empty() {
		return ret
	}
	if o.Title != nil {
		ret.Title = *o.Title
	}
	if o.Expanded != nil {
		ret.Expanded = *o.Expanded
	}
	if o.State != nil {
		ret.State = *o.State
	}
	return ret
}
