package cmds

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/export"
	"github.com/go-go-golems/chatbox/pkg/fakellm"
	"github.com/go-go-golems/chatbox/pkg/surface/terminal"
)

// askFeedback asks for a score of the type cfg names, then for an optional comment.
func askFeedback(cfg map[string]any) (map[string]any, error) {
	typ, _ := cfg["feedback_type"].(string)
	scale, ok := chatbox.ScoreScales[typ]
	if !ok {
		typ, scale = "thumbs", chatbox.ScoreScales["thumbs"]
	}
	options := make([]huh.Option[string], 0, len(scale)+1)
	for _, s := range scale {
		options = append(options, huh.NewOption(s, s))
	}
	options = append(options, huh.NewOption("skip", ""))

	var score, text string
	fields := []huh.Field{
		huh.NewSelect[string]().Title("How was this answer?").Options(options...).Value(&score),
	}
	if label, _ := cfg["optional_text_label"].(string); label != "" {
		fields = append(fields, huh.NewInput().Title(label).Value(&text))
	}
	err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCharm()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "feedback form")
	}
	if score == "" {
		return nil, nil
	}
	return map[string]any{"type": typ, "score": score, "text": text}, nil
}

func NewReplCommand(g *Globals) *cobra.Command {
	var (
		feedback string
		inStatus bool
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Line based chat with the fake LLM, asking for feedback after every answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := OpenApp(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			interactive := isatty.IsTerminal(os.Stdin.Fd())
			opts := []terminal.Option{terminal.WithWidth(terminal.Width()), terminal.WithStyle(defaultStyle())}
			if interactive && feedback != "" {
				opts = append(opts, terminal.WithFeedback(askFeedback))
			}
			doc, err := terminal.New(opts...)
			if err != nil {
				return err
			}
			cb, err := app.NewChatBox(ctx, doc)
			if err != nil {
				return err
			}
			if err := cb.OutputMessages(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, doc.View())

			ui := &input.UI{Writer: out, Reader: cmd.InOrStdin()}
			llm := fakellm.New(0)
			for {
				line, err := ui.Ask("you", &input.Options{Required: false, HideOrder: true})
				if err != nil {
					if !errors.Is(err, input.ErrInterrupted) {
						log.Debug().Err(err).Msg("input closed")
					}
					break
				}
				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "/quit":
					return app.Save(ctx, cb)
				case "/export":
					_, _ = fmt.Fprint(out, export.Markdown(cb.ExportMarkdown()))
					continue
				}

				if err := fakellm.Answer(ctx, cb, llm, line, fakellm.AnswerOptions{InStatus: inStatus}); err != nil {
					return err
				}
				if feedback != "" {
					fb, err := cb.ShowFeedback(-1, chatbox.FeedbackConfig{
						"feedback_type":       feedback,
						"optional_text_label": "anything to add?",
					})
					if err != nil {
						return err
					}
					if fb != nil {
						if _, _, err := cb.SetFeedback(*fb, -1); err != nil {
							return err
						}
					}
				}
				_, _ = fmt.Fprintln(out, doc.TurnView(-2))
				_, _ = fmt.Fprintln(out, doc.TurnView(-1))
			}
			return app.Save(ctx, cb)
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "thumbs", "Feedback scale asked after every answer (thumbs, faces, empty to disable)")
	cmd.Flags().BoolVar(&inStatus, "in-status", false, "Show answers in status containers")
	return cmd
}
