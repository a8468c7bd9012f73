// Package fakellm is a canned language model used by the demo commands. It
// answers every question with the same template and streams it one rune at a
// time.
package fakellm

import (
	"context"
	"fmt"
	"time"
)

var References = []string{"reference 1", "reference 2", "reference 3"}

// Chunk is one piece of a streamed answer.
type Chunk struct {
	Text string
	Docs []string
}

type LLM struct {
	// Delay is slept between two streamed chunks.
	Delay time.Duration
}

func New(delay time.Duration) *LLM {
	return &LLM{Delay: delay}
}

func (l *LLM) answer(query string) (string, []string) {
	return fmt.Sprintf("this is llm answer for your question:\n\n%s", query), append([]string(nil), References...)
}

// Chat returns the full answer and its references.
func (l *LLM) Chat(query string) (string, []string) {
	return l.answer(query)
}

// ChatStream streams the answer rune by rune. The channel is closed when the
// answer is complete or ctx is done.
func (l *LLM) ChatStream(ctx context.Context, query string) <-chan Chunk {
	ch := make(chan Chunk)
	text, docs := l.answer(query)
	go func() {
		defer close(ch)
		for i, r := range []rune(text) {
			if i > 0 && l.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.Delay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case ch <- Chunk{Text: string(r), Docs: docs}:
			}
		}
	}()
	return ch
}
