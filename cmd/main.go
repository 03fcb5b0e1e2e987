package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := defaultConfigPath
	if p := os.Getenv("CADENCE_CONFIG"); p != "" {
		configPath = p
	}

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		config, err = shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("failed to load config: %v", err)
		}
	} else if config, err = shared.EnvConfig(); err != nil {
		logger.Fatalf("failed to read environment: %v", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}

	store := repositories.NewKeyValueRepository(db)
	token, err := resolveToken(ctx, repositories.NewSessionRepository(store), config)
	if err != nil {
		logger.Warn("failed to read stored session", "error", err)
	}

	runner, err := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Token:      token,
		Store:      store,
		Logger:     logger,
		Output:     os.Stdout,
	})
	if err != nil {
		db.Close()
		logger.Fatalf("failed to initialize: %v", err)
	}

	app := &cli.Command{
		Name:     "cadence",
		Usage:    "Music platform notifications and catalog from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err = app.Run(ctx, os.Args)
	runner.Close()
	db.Close()

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
