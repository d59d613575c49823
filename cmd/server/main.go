// Package main - Entry point for the crossmarket HTTP server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crossmarket/cmd/cli/cmd"
	"crossmarket/internal/config"
	"crossmarket/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "crossmarket.yaml", "Config file (YAML or JSON)")
	envFile := flag.String("env-file", ".env", "Dotenv file with CROSSMARKET_* overrides")
	addr := flag.String("addr", "", "Server address (overrides config)")
	flag.Parse()

	if err := run(*cfgPath, *envFile, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "crossmarket-server: %v\n", err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

func run(cfgPath, envFile, addr string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.Serve(ctx, cfg, cmd.Version, true)
}
