// Package surface defines the boundary between the chat transcript and the host
// that actually draws it.
//
// A Surface opens one Container per chat turn. Each element rendered into the
// turn acquires its own Placeholder from that container. Writing to a
// placeholder replaces whatever it showed before, which is what makes in-place
// updates (streaming) possible: the transcript keeps the placeholder and writes
// into it again instead of acquiring a new one.
package surface

// State is the visual state of a status container.
type State string

const (
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateError    State = "error"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateRunning, StateComplete, StateError:
		return true
	}
	return false
}

// Status describes the expandable frame a placeholder's content is wrapped in.
type Status struct {
	Title    string
	Expanded bool
	State    State
}

// Block is one unit of drawable content.
type Block struct {
	Kind    string
	Text    string
	Data    []byte
	Options map[string]any
}

// Writer replaces the content of a drawable slot.
type Writer interface {
	Write(b Block) error
}

// Placeholder is a slot inside a container. Writes replace the slot content.
type Placeholder interface {
	Writer
	// ID identifies the slot for the lifetime of the surface.
	ID() string
	// Status returns a writer that draws into the slot wrapped in a status frame.
	Status(s Status) Writer
}

// Container holds the placeholders of one chat turn.
type Container interface {
	AcquirePlaceholder() (Placeholder, error)
}

// PositionalContainer is implemented by containers that can insert a slot
// in front of existing ones.
type PositionalContainer interface {
	Container
	AcquirePlaceholderAt(pos int) (Placeholder, error)
}

// FeedbackWidget is implemented by containers that can collect feedback on a turn.
// It returns nil when no feedback was submitted.
type FeedbackWidget interface {
	RenderFeedback(cfg map[string]any) (map[string]any, error)
}

// Surface opens containers for chat turns.
type Surface interface {
	OpenMessage(role string, avatar string) (Container, error)
}
