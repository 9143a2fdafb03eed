package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/config"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/database"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/logging"
	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/internal/notify"
)

// broadcast re-sends the anomaly summary of the latest stored run
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.LogLevel)

	if !cfg.Database.Enabled() {
		log.Fatal().Msg("DB_HOST and DB_NAME must be set")
	}
	if !cfg.Telegram.Enabled() {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_IDS must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	run, err := db.LatestRun(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load latest run")
	}
	if run == nil {
		log.Info().Msg("No stored run, nothing to broadcast")
		return
	}

	notifier, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	text := notify.FormatAnomalySummary(run.GeneratedAt, run.Records, run.Anomalies, run.AnomalyCounts)
	if err := notifier.Broadcast(ctx, text); err != nil {
		log.Error().Err(err).Msg("Broadcast finished with failures")
		os.Exit(1)
	}

	fmt.Printf("Broadcast of run %d sent to %d chats\n", run.ID, len(cfg.Telegram.ChatIDs))
}
