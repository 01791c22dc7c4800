package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	var (
		topic     string
		eventType string
		payload   string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a typed event to a topic",
		Long: `Publish a typed event to a topic. The payload should be valid JSON
shaped for the event type (e.g. node:online carries a node status payload).
If no payload is provided, an empty event will be published.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(topic, eventType, payload)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to publish to (required)")
	cmd.Flags().StringVar(&eventType, "type", "", "Event type, e.g. node:online (required)")
	cmd.Flags().StringVar(&payload, "payload", "{}", "Event payload as JSON")
	if err := cmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("Failed to mark topic as required: %v", err))
	}
	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(fmt.Sprintf("Failed to mark type as required: %v", err))
	}

	return cmd
}

func runPublish(topic, eventType, payloadStr string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Parse payload JSON
	var payload interface{}
	if payloadStr != "" {
		err := json.Unmarshal([]byte(payloadStr), &payload)
		if err != nil {
			return fmt.Errorf("invalid JSON payload: %w", err)
		}
	}

	fmt.Printf("Publishing %s event to topic '%s'...\n", eventType, topic)

	response, err := client.PublishEvent(ctx, topic, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	fmt.Printf("✅ Event published successfully!\n")
	fmt.Printf("Event ID: %s\n", response.EventID)
	fmt.Printf("Topic: %s\n", response.Topic)
	fmt.Printf("Timestamp: %s\n", response.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}
