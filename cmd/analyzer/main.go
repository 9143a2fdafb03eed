package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/analyze"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/anomaly"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/cluster"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/config"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/database"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/logging"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/metrics"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/notify"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/report"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/source"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	logging.Setup(cfg.LogLevel)
	log.Info().Msg("Starting water flow analyzer")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// 3. Print configuration
	printConfig(cfg)

	// 4. Load records
	var src models.RecordSource = source.NewCSVSource(cfg.InputPath)
	records, err := src.Records(ctx)
	if err != nil {
		bad := models.MalformedIndices(err)
		if len(bad) == 0 || !cfg.DropMalformed || records == nil {
			log.Fatal().Err(err).Str("path", cfg.InputPath).Msg("Failed to read records")
		}
		log.Warn().Int("malformed", len(bad)).Msg("Input has malformed rows, they will be dropped")
	}
	log.Info().Int("count", len(records)).Str("path", cfg.InputPath).Msg("Records loaded")

	// 5. Analyze
	recorder := metrics.NewRecorder()
	analyzer := analyze.New(analyze.Options{
		Detector: &anomaly.Detector{
			Window:            cfg.RollingWindow,
			ZThreshold:        cfg.ZThreshold,
			RollingMultiplier: cfg.RollingMultiplier,
		},
		Engine: &cluster.Engine{
			Options: cluster.Options{
				K:       cfg.ClusterK,
				Seed:    cfg.KMeansSeed,
				NInit:   cfg.KMeansNInit,
				MaxIter: cfg.KMeansMaxIter,
				Tol:     cfg.KMeansTol,
			},
			ElbowMaxK: cfg.ElbowMaxK,
		},
		DropMalformed: cfg.DropMalformed,
		Metrics:       recorder,
	})

	result, err := analyzer.Run(ctx, records)
	if err != nil {
		logRunError(err)
		os.Exit(1)
	}

	// 6. Hand the result to every configured sink
	sinks, closeSinks := buildSinks(ctx, cfg)
	defer closeSinks()

	failed := false
	for name, sink := range sinks {
		if err := sink.Write(ctx, result); err != nil {
			log.Error().Err(err).Str("sink", name).Msg("Sink failed")
			failed = true
		}
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error().Err(err).Str("path", cfg.MetricsFile).Msg("Failed to write metrics")
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
	log.Info().Msg("Analysis completed successfully")
}

// buildSinks returns the enabled sinks keyed by name and a function closing them
func buildSinks(ctx context.Context, cfg *config.Config) (map[string]models.ResultSink, func()) {
	sinks := map[string]models.ResultSink{
		"csv": report.NewCSVWriter(cfg.OutputDir),
	}
	closers := []func(){}

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			log.Error().Err(err).Msg("Database unavailable, results will not be stored")
		} else {
			sinks["postgres"] = db
			closers = append(closers, func() { db.Close() })
		}
	}

	if cfg.Telegram.Enabled() {
		notifier, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
		if err != nil {
			log.Error().Err(err).Msg("Telegram unavailable, alerts will not be sent")
		} else {
			sinks["telegram"] = notifier
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// logRunError reports why a run was aborted
func logRunError(err error) {
	var (
		degenerate   *models.DegenerateInputError
		insufficient *models.InsufficientDataError
	)
	switch {
	case len(models.MalformedIndices(err)) > 0:
		log.Error().Err(err).Ints("positions", models.MalformedIndices(err)).
			Msg("Malformed records found, set DROP_MALFORMED=true to skip them")
	case errors.As(err, &degenerate):
		log.Error().Err(err).Msg("Flow signal has no variance")
	case errors.As(err, &insufficient):
		log.Error().Err(err).Msg("Not enough records for the requested clusters")
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("Analysis cancelled")
	default:
		log.Error().Err(err).Msg("Analysis failed")
	}
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, stopping...")
		cancel()
	}()
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Str("InputPath", cfg.InputPath).
		Str("OutputDir", cfg.OutputDir).
		Int("RollingWindow", cfg.RollingWindow).
		Float64("ZThreshold", cfg.ZThreshold).
		Float64("RollingMultiplier", cfg.RollingMultiplier).
		Int("ClusterK", cfg.ClusterK).
		Int("ElbowMaxK", cfg.ElbowMaxK).
		Int64("KMeansSeed", cfg.KMeansSeed).
		Int("KMeansNInit", cfg.KMeansNInit).
		Int("KMeansMaxIter", cfg.KMeansMaxIter).
		Bool("DropMalformed", cfg.DropMalformed).
		Bool("Database", cfg.Database.Enabled()).
		Bool("Telegram", cfg.Telegram.Enabled()).
		Msg("Configuration loaded")
}
