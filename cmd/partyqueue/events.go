package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/party-queue-system/internal/session"
	"github.com/party-queue-system/pkg/events"
)

var (
	eventsSession string
	eventsGroup   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow session activity published to Kafka",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is not set")
		}
		group := eventsGroup
		if group == "" {
			group = cfg.KafkaGroupID
		}
		filter := session.NormalizeCode(eventsSession)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := events.NewKafkaClient(cfg.KafkaBrokers, cfg.KafkaTopic, group)
		defer client.Close()

		out := cmd.OutOrStdout()
		err := client.ConsumeEvents(ctx, func(ev events.Event) error {
			if filter != "" && ev.SessionID != filter {
				return nil
			}
			fmt.Fprintf(out, "%s  %s  %-20s %s %s\n",
				ev.Timestamp.Local().Format("15:04:05"), ev.SessionID, ev.Type, ev.UserName, describe(ev))
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func describe(ev events.Event) string {
	switch ev.Type {
	case events.EventTypeSessionCreated:
		var p events.SessionCreatedPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			return fmt.Sprintf("created %q", p.Name)
		}
	case events.EventTypeSongAdded, events.EventTypeSongRemoved:
		var p events.SongPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			return fmt.Sprintf("%s - %s", p.Title, p.Artist)
		}
	case events.EventTypeSongVoted:
		var p events.SongVotedPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			return fmt.Sprintf("%s on %s (score %+d)", p.Direction, p.SongID, p.NetScore)
		}
	case events.EventTypeNowPlayingChanged:
		var p events.NowPlayingPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			return fmt.Sprintf("now playing %s - %s", p.Title, p.Artist)
		}
	case events.EventTypeQueueCleared:
		var p events.QueueClearedPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			return fmt.Sprintf("removed %d songs", p.Removed)
		}
	}
	return ""
}

func init() {
	eventsCmd.Flags().StringVar(&eventsSession, "session", "", "only show events for this session code")
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "", "consumer group (default $KAFKA_GROUP_ID)")
	rootCmd.AddCommand(eventsCmd)
}
