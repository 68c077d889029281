package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"provenant/internal/app"
	"provenant/internal/platform/config"
	"provenant/internal/platform/httpserver"
	"provenant/internal/platform/logger"
)

// main loads configuration, wires the registry and runs the HTTP server
// alongside the notification relay until a shutdown signal arrives.
func main() {
	cfg, err := config.Load(".", "/etc/provenant")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer registry.Close()

	srv := httpserver.New(cfg.Server, registry.Router)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting provenant",
			"addr", cfg.Server.Addr,
			"storage", cfg.Storage.Driver,
			"identity_driver", cfg.IdentityDriver(),
			"finalize_gate", cfg.Policy.FinalizeGate,
			"required_validations", cfg.Policy.RequiredValidations,
		)
		return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout)
	})
	if registry.Relay != nil {
		g.Go(func() error {
			log.Info("starting notification relay", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
			return registry.Relay.Run(ctx)
		})
	}
	return g.Wait()
}
