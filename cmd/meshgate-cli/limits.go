package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLimitsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show your current rate-limit status",
		Long: `Show your remaining request budget and when it resets. Reading the
status does not consume from the budget.`,
		RunE: runLimits,
	}

	return cmd
}

func runLimits(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status, err := client.GetLimitStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get limit status: %w", err)
	}

	fmt.Printf("Rate-limit status for %s:\n", status.ClientID)
	fmt.Printf("  Tier: %s\n", status.Tier)
	fmt.Printf("  Remaining: %d\n", status.Remaining)
	if !status.ResetAt.IsZero() {
		fmt.Printf("  Resets At: %s\n", status.ResetAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
