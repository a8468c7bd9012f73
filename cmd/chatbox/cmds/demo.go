package cmds

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/fakellm"
	"github.com/go-go-golems/chatbox/pkg/surface/terminal"
)

// sample media shown by --media
const (
	sampleImage = "https://raw.githubusercontent.com/charmbracelet/bubbletea/master/examples/chat/chat.gif"
	sampleVideo = "https://sample-videos.com/video123/mp4/720/big_buck_bunny_720p_1mb.mp4"
	sampleAudio = "https://sample-videos.com/audio/mp3/crowd-cheering.mp3"
)

func NewDemoCommand(g *Globals) *cobra.Command {
	var (
		streaming bool
		inStatus  bool
		agent     bool
		media     bool
		history   bool
		style     string
		delay     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo [question]",
		Short: "Answer one question with the fake LLM and print the transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := OpenApp(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			doc, err := terminal.New(terminal.WithWidth(terminal.Width()), terminal.WithStyle(style))
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

			query := "what can you do?"
			if len(args) == 1 {
				query = args[0]
			}
			llm := fakellm.New(delay)
			if agent {
				err = fakellm.RunAgent(ctx, cb, fakellm.NewAgent(llm), query, 2, nil)
			} else {
				err = fakellm.Answer(ctx, cb, llm, query, fakellm.AnswerOptions{Streaming: streaming, InStatus: inStatus})
			}
			if err != nil {
				return err
			}
			if media {
				for _, e := range []*elements.Element{
					elements.NewImage(sampleImage),
					elements.NewVideo(sampleVideo),
					elements.NewAudio(sampleAudio),
				} {
					if _, err := cb.AISay(e); err != nil {
						return err
					}
				}
			}

			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(w, doc.View()); err != nil {
				return errors.Wrap(err, "write transcript")
			}
			if history {
				b, err := cb.ToJSON(true)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(w, string(b))
			}
			return app.Save(ctx, cb)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&streaming, "stream", true, "Stream the answer chunk by chunk")
	f.BoolVar(&inStatus, "in-status", true, "Show answer and references in status containers")
	f.BoolVar(&agent, "agent", false, "Run the fake agent instead of a plain answer")
	f.BoolVar(&media, "media", false, "Append image, video and audio messages")
	f.BoolVar(&history, "history", false, "Print the JSON snapshot after the transcript")
	f.StringVar(&style, "style", defaultStyle(), "Markdown style (auto, dark, light, notty)")
	f.DurationVar(&delay, "delay", 0, "Delay between streamed chunks")
	return cmd
}

// defaultStyle avoids ANSI styling when stdout is not a terminal.
func defaultStyle() string {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return "auto"
	}
	return "notty"
}
