// Package memory implements a recording render surface.
//
// It keeps every opened turn and every slot in memory and counts writes, which
// makes it suitable for tests and for headless hosts that only need the final
// drawn state.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

// Surface records what the transcript draws.
type Surface struct {
	mu    sync.Mutex
	turns []*Turn

	// FeedbackResponse is returned by every turn's feedback widget when set.
	FeedbackResponse map[string]any
}

var _ surface.Surface = &Surface{}

func New() *Surface {
	return &Surface{}
}

// Turn is one opened chat turn.
type Turn struct {
	s        *Surface
	Role     string
	Avatar   string
	Slots    []*Slot
	Feedback []map[string]any
}

var _ surface.PositionalContainer = &Turn{}
var _ surface.FeedbackWidget = &Turn{}

// Slot is one placeholder and its current content.
type Slot struct {
	s       *Surface
	id      string
	Block   surface.Block
	Frame   *surface.Status
	Writes  int
	Written bool
}

var _ surface.Placeholder = &Slot{}

func (s *Surface) OpenMessage(role string, avatar string) (surface.Container, error) {
	if role == "" {
		return nil, errors.New("memory surface: empty role")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Turn{s: s, Role: role, Avatar: avatar}
	s.turns = append(s.turns, t)
	return t, nil
}

// Turns returns the opened turns in order.
func (s *Surface) Turns() []*Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Turn(nil), s.turns...)
}

// Reset forgets everything drawn so far, like a host re-run clearing the page.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// SlotCount returns the number of placeholders acquired across all turns.
func (s *Surface) SlotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.turns {
		n += len(t.Slots)
	}
	return n
}

func (t *Turn) AcquirePlaceholder() (surface.Placeholder, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	slot := &Slot{s: t.s, id: uuid.NewString()}
	t.Slots = append(t.Slots, slot)
	return slot, nil
}

func (t *Turn) AcquirePlaceholderAt(pos int) (surface.Placeholder, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if pos < 0 || pos > len(t.Slots) {
		return nil, errors.Errorf("memory surface: slot position %d out of range [0,%d]", pos, len(t.Slots))
	}
	slot := &Slot{s: t.s, id: uuid.NewString()}
	t.Slots = append(t.Slots, nil)
	copy(t.Slots[pos+1:], t.Slots[pos:])
	t.Slots[pos] = slot
	return slot, nil
}

func (t *Turn) RenderFeedback(cfg map[string]any) (map[string]any, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	c := make(map[string]any, len(cfg))
	for k, v := range cfg {
		c[k] = v
	}
	t.Feedback = append(t.Feedback, c)
	if t.s.FeedbackResponse == nil {
		return nil, nil
	}
	return t.s.FeedbackResponse, nil
}

func (s *Slot) ID() string { return s.id }

func (s *Slot) Write(b surface.Block) error {
	return s.write(nil, b)
}

func (s *Slot) Status(st surface.Status) surface.Writer {
	return statusWriter{slot: s, status: st}
}

func (s *Slot) write(st *surface.Status, b surface.Block) error {
	if b.Kind == "" {
		return errors.New("memory surface: block kind is empty")
	}
	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	s.Block = b
	s.Frame = st
	s.Writes++
	s.Written = true
	return nil
}

type statusWriter struct {
	slot   *Slot
	status surface.Status
}

func (w statusWriter) Write(b surface.Block) error {
	st := w.status
	return w.slot.write(&st, b)
}
