package fakellm

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

type AnswerOptions struct {
	Streaming bool
	// InStatus draws the answer and its references in status containers.
	InStatus bool
	// OnUpdate runs after every change to the transcript, e.g. to repaint a TUI.
	OnUpdate func()
}

func (o AnswerOptions) updated() {
	if o.OnUpdate != nil {
		o.OnUpdate()
	}
}

func framed(content, title string, inStatus, expanded bool) *elements.Element {
	if inStatus {
		return elements.NewMarkdown(content, elements.WithStatus(title, expanded, surface.StateRunning))
	}
	return elements.NewMarkdown(content, elements.WithTitle(title))
}

// Answer records query as a user message and the LLM answer after it. When
// streaming, the answer is written chunk by chunk into the same placeholder.
// A cancelled ctx leaves the partial answer in the transcript.
func Answer(ctx context.Context, cb *chatbox.ChatBox, llm *LLM, query string, o AnswerOptions) error {
	if _, err := cb.UserSay(query); err != nil {
		return err
	}
	o.updated()

	if !o.Streaming {
		text, docs := llm.Chat(query)
		answer := framed(text, "answer", o.InStatus, true)
		refs := framed(strings.Join(docs, "\n\n"), "references", o.InStatus, false)
		if o.InStatus {
			answer.State = surface.StateComplete
			refs.State = surface.StateComplete
		}
		_, err := cb.AISay(answer, refs)
		o.updated()
		return err
	}

	if _, err := cb.AISay(
		framed("thinking", "answer", o.InStatus, true),
		framed("", "references", o.InStatus, false),
	); err != nil {
		return err
	}
	o.updated()

	var text strings.Builder
	refsShown := false
	for c := range llm.ChatStream(ctx, query) {
		text.WriteString(c.Text)
		if _, err := cb.UpdateMsg(text.String(), chatbox.AtElement(0)); err != nil {
			return err
		}
		if !refsShown {
			if _, err := cb.UpdateMsg(strings.Join(c.Docs, "\n\n"), chatbox.AtElement(1), chatbox.Streaming(false), chatbox.State(surface.StateComplete)); err != nil {
				return err
			}
			refsShown = true
		}
		o.updated()
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "answer interrupted")
	}
	_, err := cb.UpdateMsg(text.String(), chatbox.AtElement(0), chatbox.Streaming(false), chatbox.State(surface.StateComplete))
	o.updated()
	return err
}

// RunAgent records query and streams the agent's steps into one assistant
// message: every thought and action gets its own status container, collapsed
// once done, followed by the final answer.
func RunAgent(ctx context.Context, cb *chatbox.ChatBox, agent *Agent, query string, steps int, onUpdate func()) error {
	o := AnswerOptions{OnUpdate: onUpdate}
	if _, err := cb.UserSay(query); err != nil {
		return err
	}
	if _, err := cb.AISay(elements.NewMarkdown("running agent with tools: " + strings.Join(agent.Tools, ", "))); err != nil {
		return err
	}
	o.updated()

	var out strings.Builder
	for s := range agent.RunStream(ctx, query, steps) {
		var err error
		switch {
		case s.Type == StepComplete:
			_, err = cb.InsertMsg(elements.NewMarkdown(s.Output), chatbox.AtPosition(-1))
		case s.Status == StatusStarted:
			out.Reset()
			_, err = cb.InsertMsg(elements.NewMarkdown("", elements.WithStatus(s.Text, true, surface.StateRunning)), chatbox.AtPosition(-1))
		case s.Status == StatusStreaming:
			out.WriteString(s.Output)
			_, err = cb.UpdateMsg(out.String(), chatbox.AtElement(-1))
		case s.Status == StatusDone:
			_, err = cb.UpdateMsg(out.String(), chatbox.AtElement(-1), chatbox.Streaming(false),
				chatbox.State(surface.StateComplete), chatbox.Expanded(false))
		}
		if err != nil {
			return err
		}
		o.updated()
	}
	return errors.Wrap(ctx.Err(), "agent interrupted")
}
