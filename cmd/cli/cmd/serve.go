// Package cmd - serve command
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crossmarket/api"
	"crossmarket/internal/app"
	"crossmarket/internal/config"
	"crossmarket/internal/logging"
)

var serveFlags struct {
	addr    string
	inputs  []string
	dsn     string
	driver  string
	preload bool
}

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve opportunities over HTTP",
	Long: `Start the JSON API. The listing source is read on startup (or on the
first request with --preload=false) and re-read by POST /scan with "reload": true.

Endpoints:
  GET    /health
  GET    /version
  GET    /opportunities?min_score=&limit=&route=
  GET    /summary
  POST   /scan
  DELETE /cache
  GET    /runs?snapshot=&limit=&offset=
  GET    /runs/{id}
  GET    /runs/{id}/diff/{other}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (default from config, :8080)")
	f.StringSliceVarP(&serveFlags.inputs, "input", "i", nil, "listing CSV file (repeatable)")
	f.StringVar(&serveFlags.dsn, "dsn", "", "database DSN to read listings from")
	f.StringVar(&serveFlags.driver, "driver", "", "database driver (sqlite, postgres)")
	f.BoolVar(&serveFlags.preload, "preload", true, "load listings before accepting requests")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Addr = serveFlags.addr
	}
	if f.Changed("input") {
		cfg.Input.Files = serveFlags.inputs
	}
	if f.Changed("dsn") {
		cfg.Input.DSN = serveFlags.dsn
	}
	if f.Changed("driver") {
		cfg.Input.Driver = serveFlags.driver
	}

	return Serve(ctx, cfg, Version, serveFlags.preload)
}

// Serve wires the application and blocks until ctx is cancelled
func Serve(ctx context.Context, cfg *config.Config, version string, preload bool) error {
	a, err := app.New(ctx, cfg, logging.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(version, a.Engine, a.Source, cfg.ScanParams(), logging.Logger)
	if a.History != nil {
		srv.WithHistory(a.History)
	}
	if preload {
		if err := srv.Reload(ctx); err != nil {
			return err
		}
	}

	logging.Info("Starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("source", a.Source.Name()))
	return srv.ListenAndServe(ctx, cfg.Server.Addr,
		time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second,
		time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second)
}
