// cmd/catalog/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"bookstudio/internal/blob"
	"bookstudio/internal/blob/fs"
	"bookstudio/internal/blob/s3"
	"bookstudio/internal/catalog"
	"bookstudio/internal/config"
	"bookstudio/internal/persistence/chaos"
	"bookstudio/internal/persistence/memory"
	"bookstudio/internal/persistence/sqlstore"
)

const serviceName = "bookstudio"

// application bundles what the HTTP layer needs.
type application struct {
	config  config.Config
	logger  *slog.Logger
	service catalog.Service
	metrics *httpMetrics
}

func main() {
	configPath := flag.String("config", "", "path to an HCL config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	store, journal, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()
	logger.Info("catalog store ready", "driver", cfg.Database.Driver)

	if len(cfg.Faults) > 0 {
		store, err = injectFaults(store, cfg.Faults)
		if err != nil {
			return fmt.Errorf("faults: %w", err)
		}
		for _, f := range cfg.Faults {
			logger.Warn("storage fault injected",
				"type", f.Type, "kind", f.Kind, "ops", f.Ops, "blast_radius", f.BlastRadius)
		}
	}

	opts := []catalog.ServiceOption{catalog.WithJournal(journal)}
	blobs, err := openBlobs(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	if blobs != nil {
		opts = append(opts, catalog.WithBlobStore(blobs))
		logger.Info("photo storage ready", "driver", string(blobs.Driver()))
	} else {
		logger.Warn("photo storage disabled")
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		service: catalog.NewService(store, opts...),
		metrics: newHTTPMetrics(prometheus.NewRegistry()),
	}
	return app.serve(ctx)
}

// openStore selects the entity store and journal for the configured driver.
func openStore(ctx context.Context, cfg config.Database) (catalog.Store, catalog.Journal, func(), error) {
	if cfg.Driver == "memory" {
		return memory.New(), memory.NewJournal(), func() {}, nil
	}

	s, err := sqlstore.Open(ctx, sqlstore.Driver(cfg.Driver), cfg.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return s, s.Journal(), func() { _ = s.Close() }, nil
}

// injectFaults wraps store so every configured fault fires on matching calls.
func injectFaults(store catalog.Store, faults []config.Fault) (catalog.Store, error) {
	wrapped := chaos.Wrap(store)
	var errs []error
	for i, f := range faults {
		fault := chaos.Fault{
			Type:        chaos.FaultType(f.Type),
			Target:      catalog.Kind(f.Kind),
			Latency:     f.Latency,
			BlastRadius: f.BlastRadius,
		}
		for _, op := range f.Ops {
			fault.Ops = append(fault.Ops, chaos.Op(op))
		}
		if err := fault.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("fault %d: %w", i, err))
			continue
		}
		wrapped.Inject(fault)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return wrapped, nil
}

// openBlobs returns nil when photo storage is disabled.
func openBlobs(ctx context.Context, cfg config.Blob) (blob.Store, error) {
	switch blob.Driver(cfg.Driver) {
	case blob.DriverFilesystem:
		return fs.New(cfg.Root)
	case blob.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	}
	return nil, nil
}
