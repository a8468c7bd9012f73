package cmds

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbox/pkg/events"
	"github.com/go-go-golems/chatbox/pkg/redisstream"
)

func NewWatchCommand(g *Globals) *cobra.Command {
	var consumer string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the transcript events other chatbox processes publish on Redis Streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := g.Settings()
			if err != nil {
				return err
			}
			if !s.Events.Enabled {
				return errors.New("events are disabled; set events.enabled in the config")
			}
			topic := events.TopicFor(s.Chat.SessionKey)
			if err := redisstream.EnsureGroupAtTail(ctx, s.Events.Addr, topic, s.Events.Group); err != nil {
				return errors.Wrap(err, "create consumer group")
			}
			if consumer == "" {
				consumer = "watch-" + uuid.NewString()[:8]
			}
			sub, err := redisstream.BuildGroupSubscriber(s.Events.Addr, s.Events.Group, consumer)
			if err != nil {
				return errors.Wrap(err, "build subscriber")
			}
			defer func() { _ = sub.Close() }()

			msgs, err := sub.Subscribe(ctx, topic)
			if err != nil {
				return errors.Wrap(err, "subscribe")
			}
			log.Info().Str("topic", topic).Str("consumer", consumer).Msg("watching chat events")
			for msg := range msgs {
				ev, err := events.Decode(msg.Payload)
				msg.Ack()
				if err != nil {
					log.Warn().Err(err).Str("uuid", msg.UUID).Msg("skipping undecodable event")
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s #%d.%d %s\n",
					ev.Type, ev.Conversation, ev.HistoryIndex, ev.ElementIndex, ev.Role)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&consumer, "consumer", "", "Consumer name inside the group")
	return cmd
}
