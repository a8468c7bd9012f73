package snapshotstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/session"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "snapshots.db")
	dsn, err := SQLiteDSNForFile(dbPath)
	require.NoError(t, err)
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ret := map[string]Store{
		"memory": NewInMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
	if addr := os.Getenv("CHATBOX_REDIS_ADDR"); addr != "" {
		s, err := NewRedisStore(context.Background(), addr, "chatbox-test:"+t.Name()+":")
		require.NoError(t, err)
		wipe := func() {
			entries, err := s.List(context.Background(), 0)
			require.NoError(t, err)
			for _, e := range entries {
				_ = s.Delete(context.Background(), e.SessionID)
			}
		}
		wipe()
		t.Cleanup(func() {
			wipe()
			_ = s.Close()
		})
		ret["redis"] = s
	}
	return ret
}

func TestStores_SaveLoadDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Save(ctx, "", []byte(`{}`))
			require.Error(t, err)
			_, err = s.Save(ctx, "s1", []byte(`not json`))
			require.Error(t, err)

			_, _, err = s.Load(ctx, "s1")
			require.True(t, errors.Is(err, ErrNotFound))

			v, err := s.Save(ctx, "s1", []byte(`{"currentConversationName":"a","conversations":{"a":{},"b":{}}}`))
			require.NoError(t, err)
			require.Equal(t, uint64(1), v)
			v, err = s.Save(ctx, "s1", []byte(`{"currentConversationName":"b","conversations":{"b":{}}}`))
			require.NoError(t, err)
			require.Equal(t, uint64(2), v)

			data, v, err := s.Load(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, uint64(2), v)
			require.JSONEq(t, `{"currentConversationName":"b","conversations":{"b":{}}}`, string(data))

			require.NoError(t, s.Delete(ctx, "s1"))
			require.True(t, errors.Is(s.Delete(ctx, "s1"), ErrNotFound))
			_, _, err = s.Load(ctx, "s1")
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStores_ListNewestFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Save(ctx, "old", []byte(`{"currentConversationName":"x","conversations":{"x":{}}}`))
			require.NoError(t, err)
			_, err = s.Save(ctx, "new", []byte(`{"currentConversationName":"y","conversations":{"y":{},"z":{}}}`))
			require.NoError(t, err)

			entries, err := s.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			require.Equal(t, "new", entries[0].SessionID)
			require.Equal(t, "y", entries[0].CurrentConversation)
			require.Equal(t, 2, entries[0].Conversations)
			require.Equal(t, "old", entries[1].SessionID)
			require.Greater(t, entries[1].Bytes, 0)

			limited, err := s.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			require.Equal(t, "new", limited[0].SessionID)
		})
	}
}

func TestStores_ChatBoxRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cb, err := chatbox.New(session.NewMemoryState(), nil, chatbox.WithGreetings("hi"))
			require.NoError(t, err)
			_, err = cb.UserSay("2+2?")
			require.NoError(t, err)
			_, err = cb.AISay("4")
			require.NoError(t, err)

			_, err = SaveChatBox(ctx, s, "session-1", cb)
			require.NoError(t, err)

			restored, err := chatbox.New(session.NewMemoryState(), nil)
			require.NoError(t, err)
			v, err := LoadChatBox(ctx, s, "session-1", restored)
			require.NoError(t, err)
			require.Equal(t, uint64(1), v)

			want, err := cb.ToJSON(false)
			require.NoError(t, err)
			got, err := restored.ToJSON(false)
			require.NoError(t, err)
			require.Equal(t, string(want), string(got))
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	dsn, err := SQLiteDSNForFile(dbPath)
	require.NoError(t, err)

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), "s", []byte(`{"a":1}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	data, v, err := s.Load(context.Background(), "s")
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
	require.Equal(t, `{"a":1}`, string(data))

	_, err = SQLiteDSNForFile(" ")
	require.Error(t, err)
}
