package cmds

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/fakellm"
	"github.com/go-go-golems/chatbox/pkg/surface/terminal"
)

type refreshMsg struct{}

type doneMsg struct {
	err error
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// chatModel owns the screen. The chat box itself lives on the producer
// goroutine; the model only hands it lines and repaints the document.
type chatModel struct {
	doc   *terminal.Document
	input textinput.Model
	vp    viewport.Model
	lines chan<- string
	busy  bool
	err   error
	ready bool
}

func newChatModel(doc *terminal.Document, lines chan<- string) chatModel {
	in := textinput.New()
	in.Placeholder = "ask something, or /new NAME, /use NAME, /reset, /quit"
	in.Focus()
	return chatModel{doc: doc, input: in, lines: lines}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			if line == "/quit" {
				return m, tea.Quit
			}
			if line != "" && !m.busy {
				m.busy = true
				m.err = nil
				m.input.SetValue("")
				m.lines <- line
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		h := msg.Height - 3
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = h
		}
		m.input.Width = msg.Width - 4
		m.vp.SetContent(m.doc.View())
		m.vp.GotoBottom()
	case refreshMsg:
		if m.ready {
			m.vp.SetContent(m.doc.View())
			m.vp.GotoBottom()
		}
		return m, nil
	case doneMsg:
		m.busy = false
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.vp, cmd = m.vp.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}
	status := statusStyle.Render("enter to send, esc to quit")
	if m.busy {
		status = statusStyle.Render("answering...")
	}
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.vp.View(), m.input.View(), status)
}

// handleLine runs one line typed by the user against cb, drawn on doc.
func handleLine(ctx context.Context, cb *chatbox.ChatBox, doc *terminal.Document, llm *fakellm.LLM, line string, o fakellm.AnswerOptions) error {
	if !strings.HasPrefix(line, "/") {
		return fakellm.Answer(ctx, cb, llm, line, o)
	}
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch fields[0] {
	case "/new", "/use":
		if arg == "" {
			return errors.Errorf("%s needs a conversation name", fields[0])
		}
		cb.UseChatName(arg)
	case "/reset":
		cb.ResetHistory("", false)
	case "/rename":
		if arg == "" {
			return errors.New("/rename needs a new name")
		}
		if !cb.ChangeChatName(arg, "") {
			return errors.Errorf("conversation %q already exists", arg)
		}
	case "/del":
		if _, err := cb.DelChatName(cb.CurrentChatName()); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown command %s", fields[0])
	}
	return redraw(cb, doc, o)
}

// redraw repaints the current conversation after it was switched or cleared.
func redraw(cb *chatbox.ChatBox, doc *terminal.Document, o fakellm.AnswerOptions) error {
	doc.Reset()
	err := cb.OutputMessages()
	if o.OnUpdate != nil {
		o.OnUpdate()
	}
	return err
}

func NewChatCommand(g *Globals) *cobra.Command {
	var (
		inStatus bool
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the fake LLM in a terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			doc, err := terminal.New(terminal.WithWidth(terminal.Width()))
			if err != nil {
				return err
			}
			cb, err := app.NewChatBox(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if err := cb.OutputMessages(); err != nil {
				return err
			}

			lines := make(chan string, 1)
			p := tea.NewProgram(newChatModel(doc, lines), tea.WithAltScreen())
			eg, ctx := errgroup.WithContext(cmd.Context())
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			eg.Go(func() error {
				defer cancel()
				_, err := p.Run()
				close(lines)
				return err
			})
			eg.Go(func() error {
				llm := fakellm.New(delay)
				o := fakellm.AnswerOptions{
					Streaming: true,
					InStatus:  inStatus,
					OnUpdate:  func() { p.Send(refreshMsg{}) },
				}
				for line := range lines {
					err := handleLine(ctx, cb, doc, llm, line, o)
					if err != nil && !errors.Is(err, context.Canceled) {
						log.Debug().Err(err).Str("line", line).Msg("chat line failed")
					}
					p.Send(doneMsg{err: err})
				}
				return nil
			})
			if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return app.Save(context.Background(), cb)
		},
	}
	cmd.Flags().BoolVar(&inStatus, "in-status", true, "Show answers in status containers")
	cmd.Flags().DurationVar(&delay, "delay", 20*time.Millisecond, "Delay between streamed chunks")
	return cmd
}
