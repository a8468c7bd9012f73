// Package config loads the chatbox YAML configuration.
package config

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/persistence/snapshotstore"
	"github.com/go-go-golems/chatbox/pkg/redisstream"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Settings struct {
	LogLevel string               `yaml:"log_level"`
	Chat     ChatSettings         `yaml:"chat"`
	Store    StoreSettings        `yaml:"store"`
	Events   redisstream.Settings `yaml:"events"`
	// Scripts are JavaScript files registering custom output kinds.
	Scripts []string `yaml:"scripts"`
}

type ChatSettings struct {
	Name            string   `yaml:"name"`
	SessionKey      string   `yaml:"session_key"`
	UserAvatar      string   `yaml:"user_avatar"`
	AssistantAvatar string   `yaml:"assistant_avatar"`
	UserTheme       string   `yaml:"user_theme"`
	AssistantTheme  string   `yaml:"assistant_theme"`
	RichMarkdown    bool     `yaml:"rich_markdown"`
	Greetings       []string `yaml:"greetings"`
}

type StoreSettings struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite database file. A value starting with "file:" is used as DSN verbatim.
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

func Defaults() Settings {
	return Settings{
		LogLevel: "info",
		Chat: ChatSettings{
			Name:            chatbox.DefaultChatName,
			SessionKey:      chatbox.DefaultSessionKey,
			UserAvatar:      chatbox.DefaultUserAvatar,
			AssistantAvatar: chatbox.DefaultAssistantAvatar,
			UserTheme:       chatbox.DefaultUserTheme,
			AssistantTheme:  chatbox.DefaultAssistantTheme,
			RichMarkdown:    true,
		},
		Store: StoreSettings{
			Driver:      DriverMemory,
			Path:        "chatbox.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "chatbox:snapshot:",
		},
		Events: redisstream.DefaultSettings(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrapf(err, "read config %q", path)
	}
	if err := Parse(b, &s); err != nil {
		return s, errors.Wrapf(err, "config %q", path)
	}
	return s, nil
}

// Parse decodes YAML into s, keeping the values of fields the document omits.
func Parse(b []byte, s *Settings) error {
	if err := yaml.Unmarshal(b, s); err != nil {
		return errors.Wrap(err, "decode yaml")
	}
	return s.Validate()
}

func (s Settings) Validate() error {
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return errors.Errorf("unknown log level %q", s.LogLevel)
	}
	switch s.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(s.Store.Path) == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	case DriverRedis:
		if strings.TrimSpace(s.Store.RedisAddr) == "" {
			return errors.New("store.redis_addr is required for the redis driver")
		}
	default:
		return errors.Errorf("unknown store driver %q", s.Store.Driver)
	}
	if s.Events.Enabled && strings.TrimSpace(s.Events.Addr) == "" {
		return errors.New("events.addr is required when events are enabled")
	}
	return nil
}

func (s Settings) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(s)
	return b, errors.Wrap(err, "encode yaml")
}

// ChatOptions turns the chat settings into chat box options.
func (c ChatSettings) ChatOptions() []chatbox.Option {
	opts := []chatbox.Option{
		chatbox.WithChatName(c.Name),
		chatbox.WithSessionKey(c.SessionKey),
		chatbox.WithAvatars(c.UserAvatar, c.AssistantAvatar),
		chatbox.WithThemes(c.UserTheme, c.AssistantTheme),
		chatbox.WithRichMarkdown(c.RichMarkdown),
	}
	if len(c.Greetings) > 0 {
		items := make([]any, 0, len(c.Greetings))
		for _, g := range c.Greetings {
			items = append(items, g)
		}
		opts = append(opts, chatbox.WithGreetings(items...))
	}
	return opts
}

// OpenStore opens the snapshot store the settings select.
func (s StoreSettings) OpenStore(ctx context.Context) (snapshotstore.Store, error) {
	switch s.Driver {
	case DriverMemory, "":
		return snapshotstore.NewInMemoryStore(), nil
	case DriverSQLite:
		dsn := s.Path
		if !strings.HasPrefix(dsn, "file:") {
			var err error
			dsn, err = snapshotstore.SQLiteDSNForFile(s.Path)
			if err != nil {
				return nil, err
			}
		}
		st, err := snapshotstore.NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case DriverRedis:
		st, err := snapshotstore.NewRedisStore(ctx, s.RedisAddr, s.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, errors.Errorf("unknown store driver %q", s.Driver)
	}
}
