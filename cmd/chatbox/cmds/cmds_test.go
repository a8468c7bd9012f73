package cmds

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/fakellm"
	"github.com/go-go-golems/chatbox/pkg/surface/terminal"
)

func run(t *testing.T, g *Globals, newCmd func(*Globals) *cobra.Command, args ...string) string {
	t.Helper()
	root := &cobra.Command{Use: "chatbox", SilenceUsage: true, SilenceErrors: true}
	g.AddFlags(root)
	root.AddCommand(newCmd(g))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestGlobals_FlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nstore:\n  driver: sqlite\n"), 0o644))

	g := &Globals{ConfigPath: path, LogLevel: "debug", StorePath: filepath.Join(t.TempDir(), "x.db")}
	s, err := g.Settings()
	require.NoError(t, err)
	require.Equal(t, "debug", s.LogLevel)
	require.Equal(t, "sqlite", s.Store.Driver)
	require.Equal(t, g.StorePath, s.Store.Path)

	g.StoreDriver = "nope"
	_, err = g.Settings()
	require.Error(t, err)
}

func TestDemo_SavesSessionAndExports(t *testing.T) {
	db := filepath.Join(t.TempDir(), "chat.db")
	common := []string{"--store", "sqlite", "--db", db, "--session", "s1"}

	out := run(t, &Globals{}, NewDemoCommand, append([]string{"demo", "2+2?", "--style", "notty", "--in-status=false"}, common...)...)
	require.Contains(t, out, "this is llm answer for your question:")
	require.Contains(t, out, "reference 1")

	app, err := OpenApp(context.Background(), &Globals{StoreDriver: "sqlite", StorePath: db})
	require.NoError(t, err)
	rows, err := sessionRows(context.Background(), app.Store, 0)
	require.NoError(t, err)
	require.NoError(t, app.Close())
	require.Len(t, rows, 1)
	id, ok := rows[0].Get("session_id")
	require.True(t, ok)
	require.Equal(t, "s1", id)
	version, ok := rows[0].Get("version")
	require.True(t, ok)
	require.Equal(t, uint64(1), version)

	out = run(t, &Globals{}, NewExportCommand, append([]string{"export", "--format", "md"}, common...)...)
	require.Contains(t, out, "|--|--|")
	require.Contains(t, out, "2+2?")

	out = run(t, &Globals{}, NewExportCommand, append([]string{"export", "--format", "html"}, common...)...)
	require.Contains(t, out, "<title>s1</title>")

	out = run(t, &Globals{}, NewSessionsCommand, append([]string{"sessions", "delete", "s1"}, common...)...)
	require.Contains(t, out, "deleted s1")
}

func TestSessionsCommand_HasGlazedList(t *testing.T) {
	cmd := NewSessionsCommand(&Globals{})
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"list", "delete"}, names)
}

func TestApp_ChatBoxesShareSessionState(t *testing.T) {
	ctx := context.Background()
	app, err := OpenApp(ctx, &Globals{SessionID: "a"})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	first, err := app.NewChatBox(ctx, nil)
	require.NoError(t, err)
	base := len(first.History())
	_, err = first.UserSay("hello")
	require.NoError(t, err)

	second, err := app.NewChatBox(ctx, nil)
	require.NoError(t, err)
	require.Len(t, second.History(), base+1)

	app.SessionID = "b"
	other, err := app.NewChatBox(ctx, nil)
	require.NoError(t, err)
	require.Len(t, other.History(), base)
}

func TestDemo_LoadsScriptedKinds(t *testing.T) {
	script := filepath.Join(t.TempDir(), "kinds.js")
	require.NoError(t, os.WriteFile(script, []byte(`registerOutput("cli-shout", function(c) { return c.toUpperCase(); });`), 0o644))

	g := &Globals{Scripts: []string{script}}
	app, err := OpenApp(context.Background(), g)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()
	require.Equal(t, []string{"cli-shout"}, app.JS.Kinds())
}

func TestHandleLine_Commands(t *testing.T) {
	doc, err := terminal.New(terminal.WithStyle("notty"), terminal.WithColorProfile(termenv.Ascii))
	require.NoError(t, err)
	cb, err := chatbox.New(nil, doc)
	require.NoError(t, err)
	ctx := context.Background()
	llm := fakellm.New(0)
	redraws := 0
	o := fakellm.AnswerOptions{Streaming: true, OnUpdate: func() { redraws++ }}

	require.NoError(t, handleLine(ctx, cb, doc, llm, "hello", o))
	require.Len(t, cb.History(), 2)
	require.Equal(t, 2, doc.Len())

	require.NoError(t, handleLine(ctx, cb, doc, llm, "/new other", o))
	require.Equal(t, "other", cb.CurrentChatName())
	require.Equal(t, 0, doc.Len())

	require.NoError(t, handleLine(ctx, cb, doc, llm, "/rename renamed", o))
	require.Equal(t, []string{"default", "renamed"}, cb.ChatNames())

	require.NoError(t, handleLine(ctx, cb, doc, llm, "/use default", o))
	require.Equal(t, 2, doc.Len())

	require.NoError(t, handleLine(ctx, cb, doc, llm, "/reset", o))
	require.Empty(t, cb.History())

	require.Error(t, handleLine(ctx, cb, doc, llm, "/use", o))
	require.Error(t, handleLine(ctx, cb, doc, llm, "/bogus", o))
	require.Greater(t, redraws, 3)
}
