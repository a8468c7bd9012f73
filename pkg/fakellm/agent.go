package fakellm

import (
	"context"
	"fmt"
)

type StepType string

const (
	StepThought  StepType = "thought"
	StepAction   StepType = "action"
	StepComplete StepType = "complete"
)

// StepStatus tracks a streamed step: started, streaming, done.
type StepStatus int

const (
	StatusStarted StepStatus = iota + 1
	StatusStreaming
	StatusDone
)

const FinalAnswer = "final answer"

type Step struct {
	Type   StepType   `json:"type"`
	ID     int        `json:"id,omitempty"`
	Text   string     `json:"text,omitempty"`
	Status StepStatus `json:"status,omitempty"`
	Output string     `json:"llm_output"`
}

// Agent alternates thoughts and actions, asking its LLM about each of them.
type Agent struct {
	LLM   *LLM
	Tools []string
}

func NewAgent(llm *LLM) *Agent {
	if llm == nil {
		llm = New(0)
	}
	return &Agent{LLM: llm, Tools: []string{"search", "math"}}
}

func thought(i int) string { return fmt.Sprintf("thought %d", i) }
func action(i int) string  { return fmt.Sprintf("action %d", i) }

// Run returns the completed steps, ending with the final answer.
func (a *Agent) Run(query string, steps int) []Step {
	var ret []Step
	for i := 1; i <= steps; i++ {
		for _, s := range []Step{{Type: StepThought, Text: thought(i)}, {Type: StepAction, Text: action(i)}} {
			s.ID = i
			s.Output, _ = a.LLM.Chat(s.Text)
			ret = append(ret, s)
		}
	}
	return append(ret, Step{Type: StepComplete, Output: FinalAnswer})
}

// RunStream emits, per thought and action, a started step, one streaming step
// per chunk and a done step, then the final answer.
func (a *Agent) RunStream(ctx context.Context, query string, steps int) <-chan Step {
	ch := make(chan Step)
	go func() {
		defer close(ch)
		send := func(s Step) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- s:
				return true
			}
		}
		for i := 1; i <= steps; i++ {
			for _, st := range []struct {
				typ  StepType
				text string
			}{{StepThought, thought(i)}, {StepAction, action(i)}} {
				if !send(Step{Type: st.typ, ID: i, Text: st.text, Status: StatusStarted}) {
					return
				}
				for c := range a.LLM.ChatStream(ctx, st.text) {
					if !send(Step{Type: st.typ, ID: i, Text: st.text, Status: StatusStreaming, Output: c.Text}) {
						return
					}
				}
				if ctx.Err() != nil {
					return
				}
				if !send(Step{Type: st.typ, ID: i, Text: st.text, Status: StatusDone}) {
					return
				}
			}
		}
		send(Step{Type: StepComplete, Output: FinalAnswer})
	}()
	return ch
}
