package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/formlab/formrules/internal/core/api"
	"github.com/formlab/formrules/internal/core/config"
	"github.com/formlab/formrules/internal/core/db"
	"github.com/formlab/formrules/internal/core/dispatch"
	"github.com/formlab/formrules/internal/core/server"
	"github.com/formlab/formrules/internal/engine"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the formrules HTTP API service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := db.NewStore(database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	secret, err := config.WebhookSecret()
	if err != nil {
		return fmt.Errorf("failed to load webhook secret: %w", err)
	}
	if secret == nil {
		slog.Warn("FR_WEBHOOK_SECRET not set, webhook deliveries will be unsigned")
	}

	dispatcher := dispatch.New(dispatch.Options{
		Secret:         secret,
		WebhookTimeout: cfg.WebhookTimeout,
		DebounceWindow: cfg.DebounceWindow,
	})

	service, err := api.NewService(store, engine.NewEngine(), dispatcher, cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	httpServer, err := server.NewHTTPServer(cfg, service)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	slog.Info("starting formrules API", "version", Version, "host", cfg.Host, "port", cfg.Port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		slog.Info("shutting down gracefully")
		return httpServer.Shutdown(context.Background())
	}
}
