package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/session"
)

func TestBuildPublisher_InMemoryCarriesChatEvents(t *testing.T) {
	pub, err := BuildPublisher(DefaultSettings())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	sub, ok := pub.(*gochannel.GoChannel)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := sub.Subscribe(ctx, events.TopicFor(chatbox.DefaultSessionKey))
	require.NoError(t, err)

	sink := events.NewWatermillSink(pub, "")
	cb, err := chatbox.New(session.NewMemoryState(), nil, chatbox.WithEventSink(sink))
	require.NoError(t, err)
	_, err = cb.UserSay("hello")
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		msg.Ack()
		ev, err := events.Decode(msg.Payload)
		require.NoError(t, err)
		require.Equal(t, events.TypeMessageAppended, ev.Type)
		require.Equal(t, chatbox.DefaultSessionKey, ev.SessionKey)
		require.Equal(t, "user", ev.Role)
		require.Len(t, ev.Elements, 1)
		require.Equal(t, "hello", ev.Elements[0].Content)
		require.NotZero(t, ev.TimeMs)
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestBuildPublisher_RequiresAddr(t *testing.T) {
	s := DefaultSettings()
	s.Enabled = true
	s.Addr = " "
	_, err := BuildPublisher(s)
	require.Error(t, err)
}
