package cmd

import (
	"context"
	"time"

	"github.com/frahmantamala/docflow/internal/core/events"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus commands",
	Long:  `Publish events on an in-process bus to check subscriber wiring`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType := events.EventTypeTest
		if len(args) == 1 {
			eventType = args[0]
		}
		return publishTestEvent(eventType)
	},
}

var eventData string

func publishTestEvent(eventType string) error {
	log := logger.LoggerWrapper()
	eventBus := events.NewEventBus(log)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		log.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	testEvent := events.NewTestEvent(eventData)
	testEvent.Type = eventType
	testEvent.Data["source"] = "cli-command"

	log.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	if err := eventBus.Publish(context.Background(), testEvent); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eventBus.Wait(ctx); err != nil {
		return err
	}
	log.Info("test event delivered")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
