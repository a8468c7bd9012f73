package cmds

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/export"
)

func NewExportCommand(g *Globals) *cobra.Command {
	var (
		format    string
		chat      string
		output    string
		title     string
		toClip    bool
		userColor string
		aiColor   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored session as markdown, HTML or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if g.SessionID == "" {
				return errors.New("--session is required")
			}
			app, err := OpenApp(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			cb, err := app.NewChatBox(ctx, nil)
			if err != nil {
				return err
			}

			opts := []chatbox.ExportOption{chatbox.ExportColors(userColor, aiColor)}
			if chat != "" {
				opts = append(opts, chatbox.ExportChat(chat))
			}
			var data []byte
			switch format {
			case "md", "markdown":
				data = []byte(export.Markdown(cb.ExportMarkdown(opts...)))
			case "html":
				if title == "" {
					title = g.SessionID
				}
				data, err = export.HTML(title, cb.ExportMarkdown(opts...))
			case "json":
				data, err = cb.ToJSON(true)
			default:
				return errors.Errorf("unknown export format %q", format)
			}
			if err != nil {
				return err
			}

			if toClip {
				if err := clipboard.WriteAll(string(data)); err != nil {
					return errors.Wrap(err, "copy to clipboard")
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "copied %d bytes to the clipboard\n", len(data))
				return nil
			}
			if output != "" {
				return errors.Wrapf(os.WriteFile(output, data, 0o644), "write %s", output)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return errors.Wrap(err, "write export")
		},
	}
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "md", "Export format (md, html, json)")
	f.StringVar(&chat, "chat", "", "Conversation to export, the current one when empty")
	f.StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	f.StringVar(&title, "title", "", "HTML page title")
	f.BoolVar(&toClip, "clipboard", false, "Copy the export to the clipboard")
	f.StringVar(&userColor, "user-bg", "#DCFDC8", "Background of user cells")
	f.StringVar(&aiColor, "ai-bg", "#E0F7FA", "Background of assistant cells")
	return cmd
}
