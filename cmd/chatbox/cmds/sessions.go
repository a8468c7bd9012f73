package cmds

import (
	"context"
	"fmt"

	"github.com/go-go-golems/glazed/pkg/cli"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbox/pkg/persistence/snapshotstore"
)

func NewSessionsCommand(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}

	listCmd, err := NewSessionsListCommand(g)
	cobra.CheckErr(err)
	cobraListCmd, err := cli.BuildCobraCommand(listCmd, cli.WithCobraMiddlewaresFunc(sessionsMiddlewares))
	cobra.CheckErr(err)

	del := &cobra.Command{
		Use:   "delete SESSION...",
		Short: "Delete stored sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			for _, id := range args {
				if err := app.Store.Delete(cmd.Context(), id); err != nil {
					return errors.Wrapf(err, "delete %s", id)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}

	cmd.AddCommand(cobraListCmd, del)
	return cmd
}

func sessionsMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv("CHATBOX",
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}

type SessionsListCommand struct {
	*glazedcmds.CommandDescription
	globals *Globals
}

type SessionsListSettings struct {
	Limit int `glazed:"limit"`
}

func NewSessionsListCommand(g *Globals) (*SessionsListCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := glazedcmds.NewCommandDescription(
		"list",
		glazedcmds.WithShort("List stored sessions, most recent first"),
		glazedcmds.WithLong("List stored sessions with their snapshot version, current conversation and size."),
		glazedcmds.WithFlags(
			fields.New(
				"limit",
				fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Maximum number of sessions (0 = no limit)"),
			),
		),
		glazedcmds.WithSections(glazedSection, commandSettingsSection),
	)

	return &SessionsListCommand{CommandDescription: desc, globals: g}, nil
}

func (c *SessionsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedValues *values.Values,
	gp middlewares.Processor,
) error {
	s := &SessionsListSettings{}
	if err := parsedValues.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	app, err := OpenApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	rows, err := sessionRows(ctx, app.Store, s.Limit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func sessionRows(ctx context.Context, store snapshotstore.Store, limit int) ([]types.Row, error) {
	entries, err := store.List(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	rows := make([]types.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, types.NewRow(
			types.MRP("session_id", e.SessionID),
			types.MRP("version", e.Version),
			types.MRP("updated_at_ms", e.UpdatedAtMs),
			types.MRP("current_conversation", e.CurrentConversation),
			types.MRP("conversations", e.Conversations),
			types.MRP("bytes", e.Bytes),
		))
	}
	return rows, nil
}

var _ glazedcmds.GlazeCommand = &SessionsListCommand{}
