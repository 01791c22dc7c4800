package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meshwave/meshgate-go/pkg/httpclient"
)

func newStreamCommand() *cobra.Command {
	var (
		topic        string
		types        []string
		sources      []string
		minDelta     float64
		bufferSize   int
		prettyFormat bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream events in real-time",
		Long: `Stream events in real-time using Server-Sent Events. If the topic
already has buffered history the first frame is an aggregate snapshot.
Filters narrow the stream to matching events.
Press Ctrl+C to stop streaming.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := buildFilter(cmd, types, sources, minDelta)
			return runStream(topic, filter, bufferSize, prettyFormat)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to stream from (optional - streams all events if not specified)")
	cmd.Flags().StringSliceVar(&types, "types", nil, "Only stream these event types")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "Only stream events from these source nodes")
	cmd.Flags().Float64Var(&minDelta, "min-delta", 0, "Only stream events whose magnitude change is at least this value")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 100, "Event buffer size")
	cmd.Flags().BoolVar(&prettyFormat, "pretty", false, "Pretty print JSON payloads")

	return cmd
}

// buildFilter assembles an EventFilter from the stream flags, or nil if
// no filter flag was set.
func buildFilter(cmd *cobra.Command, types, sources []string, minDelta float64) *httpclient.EventFilter {
	if len(types) == 0 && len(sources) == 0 && !cmd.Flags().Changed("min-delta") {
		return nil
	}

	filter := &httpclient.EventFilter{
		Types:   types,
		Sources: sources,
	}
	if cmd.Flags().Changed("min-delta") {
		filter.MinMagnitudeChange = &minDelta
	}
	return filter
}

func runStream(topic string, filter *httpclient.EventFilter, bufferSize int, prettyFormat bool) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	// Create context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n🛑 Stopping stream...")
		cancel()
	}()

	// Configure streaming
	config := httpclient.StreamConfig{
		Topic:                topic,
		Filter:               filter,
		BufferSize:           bufferSize,
		MaxReconnectAttempts: 0, // Infinite retries
	}

	fmt.Printf("🌊 Starting event stream from %s", serverURL)
	if topic != "" {
		fmt.Printf(" (topic: %s)", topic)
	} else {
		fmt.Printf(" (all topics)")
	}
	fmt.Println("...")
	fmt.Println("Press Ctrl+C to stop streaming")

	// Start streaming
	streamClient, err := client.Stream(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}
	defer func() {
		if err := streamClient.Close(); err != nil {
			fmt.Printf("Warning: failed to close stream client: %v\n", err)
		}
	}()

	// Process frames and errors
	frameCount := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n✅ Stream stopped. Received %d frames.\n", frameCount)
			return nil

		case msg, ok := <-streamClient.Messages():
			if !ok {
				fmt.Printf("\n🔌 Event stream closed. Received %d frames.\n", frameCount)
				return nil
			}

			frameCount++
			printFrame(msg, frameCount, prettyFormat)

		case err, ok := <-streamClient.Errors():
			if !ok {
				fmt.Printf("\n🔌 Error stream closed. Received %d frames.\n", frameCount)
				return nil
			}

			fmt.Printf("❌ Stream error: %v\n", err)
			// Continue processing - errors are non-fatal for reconnection scenarios

		case <-streamClient.Done():
			fmt.Printf("\n🔌 Stream finished. Received %d frames.\n", frameCount)
			return nil
		}
	}
}

func printFrame(msg httpclient.StreamMessage, count int, pretty bool) {
	if msg.Kind == "snapshot" && msg.Snapshot != nil {
		printSnapshotFrame(msg, count)
		return
	}

	fmt.Printf("📨 Event #%d:\n", count)
	fmt.Printf("   ID: %s\n", msg.EventID)
	fmt.Printf("   Topic: %s\n", msg.Topic)
	fmt.Printf("   Type: %s\n", msg.Type)
	fmt.Printf("   Source: %s\n", msg.Source)
	fmt.Printf("   Time: %s\n", msg.Timestamp.Format("2006-01-02 15:04:05.000"))
	printPayload(msg.Payload, pretty)
	fmt.Println()
}

func printSnapshotFrame(msg httpclient.StreamMessage, count int) {
	snap := msg.Snapshot
	fmt.Printf("📸 Snapshot #%d (topic state at join):\n", count)
	fmt.Printf("   Total Events: %d\n", snap.TotalEvents)
	fmt.Printf("   Known Nodes: %d (%d online)\n", snap.KnownNodes, snap.OnlineNodes)
	fmt.Printf("   Avg Magnitude Change: %.2f\n", snap.AvgMagnitudeChange)
	if !snap.LastEventAt.IsZero() {
		fmt.Printf("   Last Event: %s\n", snap.LastEventAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
}

func printPayload(payload json.RawMessage, pretty bool) {
	if len(payload) == 0 {
		fmt.Printf("   Payload: null\n")
		return
	}

	fmt.Printf("   Payload: ")
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, payload, "            ", "  "); err != nil {
			fmt.Printf("%s\n", string(payload))
		} else {
			fmt.Printf("\n            %s\n", buf.String())
		}
	} else {
		fmt.Printf("%s\n", string(payload))
	}
}
