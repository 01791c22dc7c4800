package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshwave/meshgate-go/pkg/httpclient"
)

func newRecentCommand() *cobra.Command {
	var (
		topic        string
		count        int
		types        []string
		sources      []string
		minDelta     float64
		prettyFormat bool
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Replay recently buffered events from a topic",
		Long: `Replay recently buffered events from a topic, newest first. Each
topic keeps a bounded replay buffer, so only events still held in the
buffer are returned. Unlike 'stream', this command fetches a batch of
events and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := buildFilter(cmd, types, sources, minDelta)
			return runRecent(topic, count, filter, prettyFormat)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to replay events from (required)")
	cmd.Flags().IntVar(&count, "count", 50, "Maximum number of events to retrieve")
	cmd.Flags().StringSliceVar(&types, "types", nil, "Only return these event types")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "Only return events from these source nodes")
	cmd.Flags().Float64Var(&minDelta, "min-delta", 0, "Only return events whose magnitude change is at least this value")
	cmd.Flags().BoolVar(&prettyFormat, "pretty", false, "Pretty print JSON payloads")

	// Mark topic as required
	if err := cmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("Failed to mark topic flag as required: %v", err))
	}

	return cmd
}

func runRecent(topic string, count int, filter *httpclient.EventFilter, prettyFormat bool) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("🔄 Replaying up to %d buffered events from topic '%s'...\n", count, topic)

	response, err := client.RecentEvents(ctx, topic, count, filter)
	if err != nil {
		return fmt.Errorf("failed to read recent events: %w", err)
	}

	if len(response.Events) == 0 {
		fmt.Printf("🔍 No buffered events found for topic '%s'\n", topic)
		return nil
	}

	fmt.Printf("📋 Found %d event(s), newest first:\n\n", response.Count)

	for i, event := range response.Events {
		printBufferedEvent(event, i+1, prettyFormat)
	}

	fmt.Printf("✅ Replay completed: %d events from topic '%s'\n", len(response.Events), topic)
	return nil
}

func printBufferedEvent(event httpclient.Event, count int, pretty bool) {
	fmt.Printf("📨 Event #%d:\n", count)
	fmt.Printf("   ID: %s\n", event.ID)
	fmt.Printf("   Topic: %s\n", event.Topic)
	fmt.Printf("   Type: %s\n", event.Type)
	fmt.Printf("   Source: %s\n", event.Source)
	fmt.Printf("   Time: %s\n", event.Timestamp.Format("2006-01-02 15:04:05.000"))
	printPayload(json.RawMessage(event.Payload), pretty)
	fmt.Println()
}
