package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tastebase/auth/internal/bootstrap"
	"github.com/tastebase/auth/internal/config"
	"github.com/tastebase/auth/internal/observability/logger"
)

func main() {
	var (
		flagConfig  = flag.String("config", "", "path to config.yaml (default: configs/config.yaml, then the example)")
		flagEnvFile = flag.String("env-file", ".env", "path to .env, loaded before the config")
		flagMigrate = flag.Bool("migrate", false, "run embedded migrations on startup (postgres driver)")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		_ = godotenv.Load(*flagEnvFile)
	}

	cfg, err := config.Load(configPath(*flagConfig))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *flagMigrate {
		cfg.Flags.Migrate = true
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "authd",
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.L().Fatal("bootstrap failed", logger.Err(err))
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.L().Fatal("server failed", logger.Err(err))
	}
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("AUTH_CONFIG"); v != "" {
		return v
	}
	for _, p := range []string{"configs/config.yaml", "configs/config.example.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "configs/config.yaml"
}
