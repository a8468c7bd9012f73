package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbox/cmd/chatbox/cmds"
)

var globals = &cmds.Globals{}

var rootCmd = &cobra.Command{
	Use:          "chatbox",
	Short:        "chatbox keeps chat transcripts and draws them in the terminal",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := globals.Settings()
		if err != nil {
			return err
		}
		return initLogger(s.LogLevel)
	},
}

// initLogger sends logs to stderr so they do not mix with exported output.
func initLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})
	return nil
}

func main() {
	globals.AddFlags(rootCmd)
	rootCmd.AddCommand(
		cmds.NewDemoCommand(globals),
		cmds.NewChatCommand(globals),
		cmds.NewReplCommand(globals),
		cmds.NewExportCommand(globals),
		cmds.NewSessionsCommand(globals),
		cmds.NewWatchCommand(globals),
	)
	err := rootCmd.Execute()
	cobra.CheckErr(err)
}
