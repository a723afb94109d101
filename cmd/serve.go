package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/bots"
	"github.com/auglet/auglet/internal/config"
	"github.com/auglet/auglet/internal/llm"
	"github.com/auglet/auglet/internal/orchestrator"
	"github.com/auglet/auglet/internal/profile"
	"github.com/auglet/auglet/internal/state"
	"github.com/auglet/auglet/internal/tooling"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat gateway server",
	Long:  `Starts the HTTP chat gateway: a REST endpoint for one-shot turns and a WebSocket endpoint for interactive clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		orch, cleanup, err := buildOrchestrator(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		gateway := bots.NewGateway(cfg.Server, orch, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- gateway.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return gateway.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildOrchestrator wires the full turn-handling stack from config. The
// returned cleanup closes the stores.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, func(), error) {
	provider, err := llm.NewProvider(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	states, err := state.NewStore(cfg.State, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating state store: %w", err)
	}

	profiles, err := buildProfileStore(cfg, logger)
	if err != nil {
		states.Close()
		return nil, nil, fmt.Errorf("creating profile store: %w", err)
	}

	registry := tooling.NewRegistry(logger)
	tooling.RegisterCoreTools(registry, profiles, logger)

	orch := orchestrator.New(*cfg, provider, states, profiles, registry, logger)
	cleanup := func() {
		profiles.Close()
		states.Close()
	}
	return orch, cleanup, nil
}

// buildProfileStore picks the profile backend from the state driver and
// wraps it in the in-process cache.
func buildProfileStore(cfg *config.Config, logger *zap.Logger) (profile.Store, error) {
	var backend profile.Store
	if cfg.State.Driver == config.StateDriverSQLite {
		sqlite, err := profile.NewSQLiteStore(cfg.State.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		backend = sqlite
	} else {
		backend = profile.NewMemoryStore()
	}

	cache := cfg.State.ProfileCache
	if cache.MaxEntries <= 0 {
		return backend, nil
	}
	ttl := time.Duration(cache.TTLMinutes) * time.Minute
	return profile.NewCachedStore(backend, cache.MaxEntries, ttl, logger), nil
}
