package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MarkLin1511/MedBridge/internal/config"
	"github.com/MarkLin1511/MedBridge/internal/sandbox"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medbridge-sandbox",
		Short: "MedBridge in-memory demo API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the demo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Show the demo dataset and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := sandbox.DemoSeedSummary()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(sum, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	secret := cfg.SandboxJWTSecret
	if secret == "" {
		// Validate guarantees this only happens in development.
		secret = "medbridge-dev-secret"
		logger.Warn().Msg("SANDBOX_JWT_SECRET not set, using the development default")
	}

	port, err := strconv.Atoi(cfg.SandboxPort)
	if err != nil {
		logger.Fatal().Str("port", cfg.SandboxPort).Msg("SANDBOX_PORT is not a number")
	}

	srv, err := sandbox.New(sandbox.Config{
		Port:      port,
		JWTSecret: secret,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build sandbox")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Int("port", port).
		Str("demo_email", sandbox.DemoEmail).
		Msg("starting sandbox")
	return srv.Start(ctx)
}
