package elements

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

// Cursor is appended to streaming markdown content until the final chunk arrives.
const Cursor = " ▌"

func WithCursor(s string) string { return s + Cursor }

func HasCursor(s string) bool { return strings.HasSuffix(s, Cursor) }

func TrimCursor(s string) string { return strings.TrimSuffix(s, Cursor) }

// Render draws the element. When inPlace is false a new placeholder is
// acquired from c; otherwise the element's own placeholder is overwritten and
// c is ignored.
func (e *Element) Render(c surface.Container, inPlace bool) (surface.Placeholder, error) {
	fn, err := Resolve(e.Kind)
	if err != nil {
		return nil, err
	}
	if inPlace {
		if e.placeholder == nil {
			return nil, ErrNotRendered
		}
		if err := e.draw(e.placeholder, fn); err != nil {
			return nil, err
		}
		return e.placeholder, nil
	}
	if c == nil {
		return nil, errors.New("render element: nil container")
	}
	p, err := c.AcquirePlaceholder()
	if err != nil {
		return nil, errors.Wrap(err, "acquire placeholder")
	}
	if err := e.draw(p, fn); err != nil {
		return nil, err
	}
	e.placeholder = p
	return p, nil
}

// RenderAt draws the element into a new placeholder at position pos of c. Containers
// that cannot insert fall back to appending.
func (e *Element) RenderAt(c surface.Container, pos int) (surface.Placeholder, error) {
	pc, ok := c.(surface.PositionalContainer)
	if !ok {
		return e.Render(c, false)
	}
	fn, err := Resolve(e.Kind)
	if err != nil {
		return nil, err
	}
	p, err := pc.AcquirePlaceholderAt(pos)
	if err != nil {
		return nil, errors.Wrap(err, "acquire placeholder")
	}
	if err := e.draw(p, fn); err != nil {
		return nil, err
	}
	e.placeholder = p
	return p, nil
}

// RenderReplacing draws e into the placeholder owned by old, which gives the
// placeholder up. e == old re-renders in place.
func (e *Element) RenderReplacing(old *Element) (surface.Placeholder, error) {
	if old == nil || old.placeholder == nil {
		return nil, ErrNotRendered
	}
	fn, err := Resolve(e.Kind)
	if err != nil {
		return nil, err
	}
	p := old.placeholder
	if err := e.draw(p, fn); err != nil {
		return nil, err
	}
	if old != e {
		old.placeholder = nil
	}
	e.placeholder = p
	return p, nil
}

func (e *Element) draw(p surface.Placeholder, fn RenderFunc) error {
	var w surface.Writer = p
	if e.InStatusContainer {
		w = p.Status(surface.Status{
			Title:    e.Title,
			Expanded: e.Expanded,
			State:    e.State,
		})
	}
	if err := fn(w, e.payload()); err != nil {
		return errors.Wrapf(err, "render %s element", e.Kind)
	}
	return nil
}

func (e *Element) payload() Payload {
	return Payload{
		Kind:    e.Kind,
		Content: e.Content,
		Data:    e.Data,
		Options: e.Options,
	}
}
