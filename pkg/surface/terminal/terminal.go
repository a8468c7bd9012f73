// Package terminal draws a chat transcript for a terminal.
//
// The Document keeps every turn and slot like a page and renders the whole
// page on View. Markdown goes through glamour, turns and status frames are
// lipgloss boxes. Writes and View may happen on different goroutines.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

const (
	DefaultWidth = 80
	MinWidth     = 40
)

// FeedbackFunc collects feedback for a turn. It returns nil when the user gave none.
type FeedbackFunc func(cfg map[string]any) (map[string]any, error)

type settings struct {
	width    int
	style    string
	output   io.Writer
	profile  *termenv.Profile
	feedback FeedbackFunc
}

type Option func(s *settings)

func WithWidth(width int) Option {
	return func(s *settings) { s.width = width }
}

// WithStyle selects the glamour style: auto, dark, light, notty, ...
func WithStyle(style string) Option {
	return func(s *settings) { s.style = style }
}

// WithOutput sets the writer colors are detected for.
func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.output = w }
}

func WithColorProfile(p termenv.Profile) Option {
	return func(s *settings) { s.profile = &p }
}

func WithFeedback(fn FeedbackFunc) Option {
	return func(s *settings) { s.feedback = fn }
}

// Width returns the width of the terminal on stdout, DefaultWidth when stdout
// is not a terminal.
func Width() int {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	if w < MinWidth {
		return MinWidth
	}
	return w
}

// Document is a terminal page of chat turns.
type Document struct {
	mu       sync.Mutex
	width    int
	md       *glamour.TermRenderer
	styles   styles
	feedback FeedbackFunc
	turns    []*Turn
}

var _ surface.Surface = &Document{}

func New(opts ...Option) (*Document, error) {
	s := &settings{width: DefaultWidth, style: "auto", output: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	if s.width < MinWidth {
		s.width = MinWidth
	}

	styleOpt := glamour.WithStandardStyle(s.style)
	if s.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(s.width-6))
	if err != nil {
		return nil, errors.Wrap(err, "create markdown renderer")
	}

	r := lipgloss.NewRenderer(s.output)
	if s.profile != nil {
		r.SetColorProfile(*s.profile)
	}
	return &Document{
		width:    s.width,
		md:       md,
		styles:   newStyles(r, s.width),
		feedback: s.feedback,
	}, nil
}

func (d *Document) OpenMessage(role string, avatar string) (surface.Container, error) {
	if role == "" {
		return nil, errors.New("terminal surface: empty role")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &Turn{d: d, role: role, avatar: avatar}
	d.turns = append(d.turns, t)
	return t, nil
}

// Reset clears the page.
func (d *Document) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.turns = nil
}

func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.turns)
}

// View renders the page.
func (d *Document) View() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	parts := make([]string, 0, len(d.turns))
	for _, t := range d.turns {
		parts = append(parts, t.view())
	}
	return strings.Join(parts, "\n")
}

// TurnView renders turn i alone. Negative values count from the end; an
// index outside the page renders nothing.
func (d *Document) TurnView(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 {
		i += len(d.turns)
	}
	if i < 0 || i >= len(d.turns) {
		return ""
	}
	return d.turns[i].view()
}

// Turn is one chat turn on the page.
type Turn struct {
	d        *Document
	role     string
	avatar   string
	slots    []*slot
	feedback string
}

var _ surface.PositionalContainer = &Turn{}
var _ surface.FeedbackWidget = &Turn{}

func (t *Turn) AcquirePlaceholder() (surface.Placeholder, error) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	s := &slot{t: t, id: uuid.NewString()}
	t.slots = append(t.slots, s)
	return s, nil
}

func (t *Turn) AcquirePlaceholderAt(pos int) (surface.Placeholder, error) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if pos < 0 || pos > len(t.slots) {
		return nil, errors.Errorf("terminal surface: slot position %d out of range [0,%d]", pos, len(t.slots))
	}
	s := &slot{t: t, id: uuid.NewString()}
	t.slots = append(t.slots, nil)
	copy(t.slots[pos+1:], t.slots[pos:])
	t.slots[pos] = s
	return s, nil
}

// RenderFeedback shows a feedback line. A disabled widget only shows the
// stored score; otherwise the document's feedback function is asked.
func (t *Turn) RenderFeedback(cfg map[string]any) (map[string]any, error) {
	if score, ok := cfg["disable_with_score"]; ok && score != nil {
		t.setFeedback(fmt.Sprintf("feedback: %v", score))
		return nil, nil
	}
	if t.d.feedback == nil {
		return nil, nil
	}
	res, err := t.d.feedback(cfg)
	if err != nil {
		return nil, err
	}
	if res != nil {
		t.setFeedback(fmt.Sprintf("feedback: %v", res["score"]))
	}
	return res, nil
}

func (t *Turn) setFeedback(s string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.feedback = s
}

// view must be called with the document lock held.
func (t *Turn) view() string {
	st := t.d.styles
	header := st.header(t.role).Render(t.avatar)
	body := make([]string, 0, len(t.slots)+1)
	for _, s := range t.slots {
		if s.rendered == "" {
			continue
		}
		body = append(body, s.rendered)
	}
	if t.feedback != "" {
		body = append(body, st.feedback.Render(t.feedback))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, st.bubble(t.role).Render(strings.Join(body, "\n")))
}

type slot struct {
	t        *Turn
	id       string
	block    surface.Block
	status   *surface.Status
	rendered string
}

var _ surface.Placeholder = &slot{}

func (s *slot) ID() string { return s.id }

func (s *slot) Write(b surface.Block) error {
	return s.write(nil, b)
}

func (s *slot) Status(st surface.Status) surface.Writer {
	return statusWriter{slot: s, status: st}
}

func (s *slot) write(st *surface.Status, b surface.Block) error {
	d := s.t.d
	content, err := d.renderBlock(b)
	if err != nil {
		return err
	}
	if st != nil {
		content = d.styles.frame(*st, content)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s.block = b
	s.status = st
	s.rendered = content
	return nil
}

type statusWriter struct {
	slot   *slot
	status surface.Status
}

func (w statusWriter) Write(b surface.Block) error {
	st := w.status
	return w.slot.write(&st, b)
}

func (d *Document) renderBlock(b surface.Block) (string, error) {
	switch b.Kind {
	case "markdown":
		out, err := d.md.Render(b.Text)
		if err != nil {
			return "", errors.Wrap(err, "render markdown")
		}
		return strings.Trim(out, "\n"), nil
	case "image", "audio", "video":
		if b.Text != "" {
			return fmt.Sprintf("[%s] %s", b.Kind, b.Text), nil
		}
		return fmt.Sprintf("[%s] %d bytes", b.Kind, len(b.Data)), nil
	case "":
		return "", errors.New("terminal surface: block kind is empty")
	default:
		return b.Text, nil
	}
}
