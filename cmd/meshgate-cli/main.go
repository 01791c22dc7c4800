package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshwave/meshgate-go/pkg/httpclient"
)

var (
	// Global flags
	serverURL string
	clientID  string
	tier      string
	token     string
	timeout   time.Duration

	// Global client instance
	client *httpclient.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "meshgate-cli",
		Short: "MeshGate HTTP API command line interface",
		Long: `meshgate-cli is a command line interface for the MeshGate HTTP API.
It provides commands for authentication, event publishing, replaying buffered
events, real-time event streaming, and rate-limit inspection.`,
		PersistentPreRunE: initializeClient,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "MeshGate server URL")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Client ID for authentication")
	rootCmd.PersistentFlags().StringVar(&tier, "tier", "", "Admission tier to request at login (default: authenticated)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT token (if already authenticated)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// Add subcommands
	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newStreamCommand())
	rootCmd.AddCommand(newRecentCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	rootCmd.AddCommand(newLimitsCommand())
	rootCmd.AddCommand(newAdminCommand())
	rootCmd.AddCommand(newHealthCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initializeClient sets up the HTTP client with global configuration
func initializeClient(cmd *cobra.Command, args []string) error {
	// Skip client initialization for help commands
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	if clientID == "" {
		return fmt.Errorf("client-id is required")
	}

	config := httpclient.Config{
		ServerURL: serverURL,
		ClientID:  clientID,
		Tier:      tier,
		Timeout:   timeout,
	}

	var err error
	client, err = httpclient.NewClient(config)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	// Set token if provided
	if token != "" {
		client.SetToken(token)
	}

	return nil
}

// requireAuthentication checks if the client is authenticated
func requireAuthentication() error {
	if client == nil {
		return fmt.Errorf("client not initialized")
	}

	if !client.IsAuthenticated() {
		return fmt.Errorf("not authenticated - run 'meshgate-cli auth' first or provide --token")
	}
	return nil
}
