package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/checkcells/checkcells/internal/api"
	"github.com/checkcells/checkcells/internal/config"
	"github.com/checkcells/checkcells/internal/daemon"
	"github.com/checkcells/checkcells/internal/log"
	"github.com/checkcells/checkcells/internal/storage"
	"github.com/checkcells/checkcells/internal/types"
)

var (
	version   = "1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version,
	})
	logger := log.WithComponent("uploadd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local disk is always available; it doubles as the degraded
	// fallback target when S3 is unreachable.
	disk, err := storage.NewDiskStore(cfg.DataDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str(log.FieldPath, cfg.DataDir).Msg("cannot prepare data directory")
	}

	var store api.BlobStore = disk
	location := types.StorageLocal
	if cfg.S3.Configured() {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot initialize object storage")
		}
		store = s3Store
		location = types.StorageRemote
		logger.Info().
			Str("bucket", cfg.S3.Bucket).
			Str("region", cfg.S3.Region).
			Msg("object storage configured")
	} else {
		logger.Warn().
			Str(log.FieldPath, cfg.DataDir).
			Msg("object storage not configured, storing uploads locally")
	}

	server := api.New(cfg, store, location, disk.Root(), api.WithVersion(version))

	manager := daemon.NewManager(cfg, server, promhttp.Handler())

	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str(log.FieldStorage, string(location)).
		Str("version", version).
		Msg("upload service starting")

	if err := manager.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("upload service exited with error")
		os.Exit(1)
	}
}
