package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin commands (requires admin privileges)",
		Long:  "Administrative commands for monitoring and managing the MeshGate system",
	}

	cmd.AddCommand(newAdminStatsCommand())
	cmd.AddCommand(newAdminResetLimitCommand())

	return cmd
}

func newAdminStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show system statistics",
		Long:  "Display MeshGate system statistics: the mesh snapshot, subscriptions, and active streams",
		RunE:  runAdminStats,
	}

	return cmd
}

func newAdminResetLimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-limit <client-id>",
		Short: "Reset a client's rate limit",
		Long:  "Clear a client's admission state so it starts fresh with a full budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminResetLimit(args[0])
		},
	}

	return cmd
}

func runAdminStats(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println("Fetching system statistics...")

	response, err := client.AdminGetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Printf("\n📊 MeshGate System Statistics:\n\n")
	fmt.Printf("Total Events: %d\n", response.Snapshot.TotalEvents)
	fmt.Printf("Topics: %d\n", len(response.Snapshot.TopicCounts))
	fmt.Printf("Known Nodes: %d (%d online)\n", response.Snapshot.KnownNodes, response.Snapshot.OnlineNodes)
	fmt.Printf("Subscriptions: %d\n", response.Subscriptions)
	fmt.Printf("Active Streams: %d\n", response.ActiveStreams)

	return nil
}

func runAdminResetLimit(targetClientID string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Resetting rate limit for client '%s'...\n", targetClientID)

	if err := client.AdminResetLimit(ctx, targetClientID); err != nil {
		return fmt.Errorf("failed to reset limit: %w", err)
	}

	fmt.Printf("✅ Rate limit reset for '%s'\n", targetClientID)
	return nil
}
