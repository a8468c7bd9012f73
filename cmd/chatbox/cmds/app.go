package cmds

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/config"
	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/jsrender"
	"github.com/go-go-golems/chatbox/pkg/persistence/snapshotstore"
	"github.com/go-go-golems/chatbox/pkg/redisstream"
	"github.com/go-go-golems/chatbox/pkg/session"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

// Globals are the persistent flags of the root command.
type Globals struct {
	ConfigPath  string
	LogLevel    string
	StoreDriver string
	StorePath   string
	SessionID   string
	Scripts     []string
}

func (g *Globals) AddFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.ConfigPath, "config", "", "YAML config file")
	f.StringVar(&g.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&g.StoreDriver, "store", "", "Snapshot store driver (memory, sqlite, redis)")
	f.StringVar(&g.StorePath, "db", "", "SQLite database file of the sqlite store")
	f.StringVar(&g.SessionID, "session", "", "Session id the transcript is restored from and saved to")
	f.StringSliceVar(&g.Scripts, "js", nil, "JavaScript files registering custom output kinds")
}

// Settings loads the config file and applies the flag overrides.
func (g *Globals) Settings() (config.Settings, error) {
	s, err := config.Load(g.ConfigPath)
	if err != nil {
		return s, err
	}
	if g.LogLevel != "" {
		s.LogLevel = g.LogLevel
	}
	if g.StoreDriver != "" {
		s.Store.Driver = g.StoreDriver
	}
	if g.StorePath != "" {
		s.Store.Path = g.StorePath
	}
	s.Scripts = append(s.Scripts, g.Scripts...)
	return s, s.Validate()
}

// App is what every command runs on: settings, the snapshot store, scripted
// output kinds and the optional event publisher.
type App struct {
	Settings  config.Settings
	SessionID string
	Store     snapshotstore.Store
	JS        *jsrender.Runtime

	sessions  *session.Manager
	publisher message.Publisher
	sink      events.Sink
}

func OpenApp(ctx context.Context, g *Globals) (*App, error) {
	s, err := g.Settings()
	if err != nil {
		return nil, err
	}
	store, err := s.Store.OpenStore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot store")
	}
	app := &App{
		Settings:  s,
		SessionID: strings.TrimSpace(g.SessionID),
		Store:     store,
		JS:        jsrender.NewRuntime(),
		sessions:  session.NewManager(),
	}
	for _, path := range s.Scripts {
		if err := app.JS.LoadScriptFile(path); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	if s.Events.Enabled {
		pub, err := redisstream.BuildPublisher(s.Events)
		if err != nil {
			_ = app.Close()
			return nil, errors.Wrap(err, "build event publisher")
		}
		app.publisher = pub
		app.sink = events.NewWatermillSink(pub, "")
	}
	log.Debug().
		Str("store", s.Store.Driver).
		Bool("events", s.Events.Enabled).
		Strs("output_kinds", app.JS.Kinds()).
		Msg("app opened")
	return app, nil
}

// NewChatBox builds a chat box drawing on surf and restores the session's
// snapshot when one is stored. Chat boxes of the same session share its state.
func (a *App) NewChatBox(ctx context.Context, surf surface.Surface) (*chatbox.ChatBox, error) {
	opts := a.Settings.Chat.ChatOptions()
	if a.sink != nil {
		opts = append(opts, chatbox.WithEventSink(a.sink))
	}
	cb, err := chatbox.New(a.sessions.Session(a.SessionID), surf, opts...)
	if err != nil {
		return nil, err
	}
	cb.InitSession(false)
	if a.SessionID == "" {
		return cb, nil
	}
	version, err := snapshotstore.LoadChatBox(ctx, a.Store, a.SessionID, cb)
	switch {
	case errors.Is(err, snapshotstore.ErrNotFound):
		log.Debug().Str("session", a.SessionID).Msg("no stored snapshot, starting fresh")
	case err != nil:
		return nil, errors.Wrapf(err, "restore session %q", a.SessionID)
	default:
		log.Info().Str("session", a.SessionID).Uint64("version", version).Msg("session restored")
	}
	return cb, nil
}

// Save stores the snapshot of cb when a session id was given.
func (a *App) Save(ctx context.Context, cb *chatbox.ChatBox) error {
	if a.SessionID == "" {
		return nil
	}
	version, err := snapshotstore.SaveChatBox(ctx, a.Store, a.SessionID, cb)
	if err != nil {
		return errors.Wrapf(err, "save session %q", a.SessionID)
	}
	log.Info().Str("session", a.SessionID).Uint64("version", version).Msg("session saved")
	return nil
}

func (a *App) Close() error {
	var first error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil && first == nil {
			first = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
