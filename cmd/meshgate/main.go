package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	internaladmission "github.com/meshwave/meshgate-go/internal/admission"
	"github.com/meshwave/meshgate-go/internal/config"
	internalregistry "github.com/meshwave/meshgate-go/internal/eventregistry"
	"github.com/meshwave/meshgate-go/internal/gateway"
)

const (
	// Application info
	appName    = "MeshGate"
	appVersion = "0.1.0"
)

func main() {
	// Command-line flags
	var (
		configPath  = flag.String("config", "", "Path to YAML configuration file (optional)")
		port        = flag.String("port", "", "Listen port (overrides config file)")
		secretKey   = flag.String("secret", "", "JWT signing secret (overrides config file)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	// Configure logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Starting %s v%s", appName, appVersion)

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ Failed to load config: %v", err)
		}
		cfg = loaded
		log.Printf("📋 Config loaded from %s", *configPath)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *secretKey != "" {
		cfg.Server.SecretKey = *secretKey
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Create the admission controller
	limiter, err := internaladmission.NewTokenBucketController(&internaladmission.Config{
		Tiers:         cfg.TierTable(),
		BucketTTL:     cfg.Admission.BucketTTL,
		SweepInterval: cfg.Admission.SweepInterval,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create admission controller: %v", err)
	}

	// Create the SSE hub and the event registry that feeds it
	hub := gateway.NewHub()
	registry, err := internalregistry.NewInMemoryRegistry(&internalregistry.Config{
		BufferCapacity: cfg.Registry.BufferCapacity,
		Deliver:        hub.Deliver,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create event registry: %v", err)
	}
	defer func() {
		log.Printf("🛑 Closing event registry...")
		if err := registry.Close(); err != nil {
			log.Printf("⚠️  Error closing registry: %v", err)
		}
	}()

	// Create the HTTP gateway
	server := gateway.NewServer(registry, limiter, hub, gateway.Config{
		Port:      cfg.Server.Port,
		SecretKey: cfg.Server.SecretKey,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run the idle-bucket sweeper in the background
	go limiter.Run(ctx)

	// Start the HTTP server
	errChan := make(chan error, 1)
	go func() {
		log.Printf("🔌 Listening on :%s", cfg.Server.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	log.Printf("✅ %s started successfully!", appName)
	log.Printf("💡 Use Ctrl+C to shutdown gracefully")

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigChan:
		log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)
	case err := <-errChan:
		log.Printf("❌ Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("⚠️  Error during graceful stop: %v", err)
	}

	log.Printf("👋 %s stopped", appName)
}
