// Command sparkify-etl loads Sparkify song metadata and event logs into a
// PostgreSQL star schema.
//
// Usage:
//
//	sparkify-etl [-config config.yaml] [create|reset|load|export|serve]
//
// The default command is load. Database connection settings come from
// config.yaml and the standard PG* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/justestif/go-sparkify-etl/internal/config"
	"github.com/justestif/go-sparkify-etl/internal/db"
	"github.com/justestif/go-sparkify-etl/internal/etl"
	"github.com/justestif/go-sparkify-etl/internal/export"
	"github.com/justestif/go-sparkify-etl/internal/logging"
	"github.com/justestif/go-sparkify-etl/internal/metrics"
	"github.com/justestif/go-sparkify-etl/internal/schema"
	"github.com/justestif/go-sparkify-etl/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config path] [create|reset|load|export|serve]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "load"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbURL := cfg.Database.URL()
	logger.Info("Connecting to database", zap.String("url", logging.RedactURL(dbURL)))
	database, err := db.New(ctx, dbURL, schema.New())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	switch command {
	case "create":
		return database.CreateTables(ctx)
	case "reset":
		return database.Reset(ctx)
	case "load":
		return load(ctx, cfg, database, logger)
	case "export":
		_, err := export.SongPlays(ctx, database, cfg.ExportPath, logger)
		return err
	case "serve":
		server, err := web.NewServer(web.ServerConfig{
			Addr:    cfg.HTTPAddr,
			Store:   database,
			Metrics: metrics.NewStored(),
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		return server.Run(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func load(ctx context.Context, cfg *config.Config, database *db.DB, logger *zap.Logger) error {
	m := metrics.New()

	opts := []etl.Option{
		etl.WithProgress(os.Stdout),
		etl.WithSkipMalformed(cfg.SkipMalformed),
	}
	if cfg.Resolver == config.ResolverQuery {
		opts = append(opts, etl.WithQueryResolver())
	}

	driver := etl.New(etl.NewStore(database), logger, m, opts...)
	_, runErr := driver.Run(ctx, cfg.Data.SongDir, cfg.Data.LogDir)

	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}
	return runErr
}
