package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the aggregate mesh snapshot",
		Long: `Show the server's aggregate mesh view: event counts per topic and
type, node presence, and the running average magnitude change.`,
		RunE: runSnapshot,
	}

	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println("Fetching mesh snapshot...")

	snap, err := client.GetSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	fmt.Printf("\n📸 Mesh Snapshot (captured %s):\n\n", snap.CapturedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Total Events: %d\n", snap.TotalEvents)
	fmt.Printf("Known Nodes: %d (%d online)\n", snap.KnownNodes, snap.OnlineNodes)
	fmt.Printf("Avg Magnitude Change: %.2f\n", snap.AvgMagnitudeChange)
	if !snap.LastEventAt.IsZero() {
		fmt.Printf("Last Event: %s\n", snap.LastEventAt.Format("2006-01-02 15:04:05"))
	}

	if len(snap.TopicCounts) > 0 {
		fmt.Printf("\nEvents by topic:\n")
		for _, topic := range sortedKeys(snap.TopicCounts) {
			fmt.Printf("  %s: %d\n", topic, snap.TopicCounts[topic])
		}
	}

	if len(snap.TypeCounts) > 0 {
		fmt.Printf("\nEvents by type:\n")
		for _, eventType := range sortedKeys(snap.TypeCounts) {
			fmt.Printf("  %s: %d\n", eventType, snap.TypeCounts[eventType])
		}
	}

	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
