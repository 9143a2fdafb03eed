package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	InputPath string `yaml:"input_path"`
	OutputDir string `yaml:"output_dir"`
	LogLevel  string `yaml:"log_level"`

	// Anomaly detection
	RollingWindow     int     `yaml:"rolling_window"`
	ZThreshold        float64 `yaml:"z_threshold"`
	RollingMultiplier float64 `yaml:"rolling_multiplier"`

	// Clustering
	ClusterK      int     `yaml:"cluster_k"`
	ElbowMaxK     int     `yaml:"elbow_max_k"`
	KMeansSeed    int64   `yaml:"kmeans_seed"`
	KMeansNInit   int     `yaml:"kmeans_n_init"`
	KMeansMaxIter int     `yaml:"kmeans_max_iter"`
	KMeansTol     float64 `yaml:"kmeans_tol"`

	// Drop malformed records instead of aborting the run
	DropMalformed bool `yaml:"drop_malformed"`

	// Prometheus textfile written after each run, disabled when empty
	MetricsFile string `yaml:"metrics_file"`

	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DatabaseConfig holds PostgreSQL connection parameters
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether enough is configured to open a connection
func (d DatabaseConfig) Enabled() bool {
	return d.Host != "" && d.DBName != ""
}

// TelegramConfig holds the alert bot settings
type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
}

// Enabled reports whether alerts can be sent
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && len(t.ChatIDs) > 0
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		InputPath:         "Data/cleaned_data.csv",
		OutputDir:         "Reports",
		LogLevel:          "info",
		RollingWindow:     10,
		ZThreshold:        3.0,
		RollingMultiplier: 1.5,
		ClusterK:          3,
		ElbowMaxK:         5,
		KMeansSeed:        42,
		KMeansNInit:       10,
		KMeansMaxIter:     300,
		KMeansTol:         1e-4,
		Database: DatabaseConfig{
			Port:    "5432",
			SSLMode: "disable",
		},
	}
}

// Load initializes configuration from defaults, an optional YAML file named by
// CONFIG_FILE and environment variables, in that order of precedence
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvironmentVariables(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentVariables() error {
	c.InputPath = getEnvWithDefault("INPUT_PATH", c.InputPath)
	c.OutputDir = getEnvWithDefault("OUTPUT_DIR", c.OutputDir)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
	c.RollingWindow = getEnvIntWithDefault("ROLLING_WINDOW", c.RollingWindow)
	c.ZThreshold = getEnvFloatWithDefault("Z_THRESHOLD", c.ZThreshold)
	c.RollingMultiplier = getEnvFloatWithDefault("ROLLING_MULTIPLIER", c.RollingMultiplier)
	c.ClusterK = getEnvIntWithDefault("CLUSTER_K", c.ClusterK)
	c.ElbowMaxK = getEnvIntWithDefault("ELBOW_MAX_K", c.ElbowMaxK)
	c.KMeansSeed = int64(getEnvIntWithDefault("KMEANS_SEED", int(c.KMeansSeed)))
	c.KMeansNInit = getEnvIntWithDefault("KMEANS_N_INIT", c.KMeansNInit)
	c.KMeansMaxIter = getEnvIntWithDefault("KMEANS_MAX_ITER", c.KMeansMaxIter)
	c.KMeansTol = getEnvFloatWithDefault("KMEANS_TOL", c.KMeansTol)
	c.DropMalformed = getEnvBoolWithDefault("DROP_MALFORMED", c.DropMalformed)
	c.MetricsFile = getEnvWithDefault("METRICS_FILE", c.MetricsFile)

	c.Database.Host = getEnvWithDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvWithDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvWithDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvWithDefault("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnvWithDefault("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", c.Database.SSLMode)

	c.Telegram.BotToken = getEnvWithDefault("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	if raw := os.Getenv("TELEGRAM_CHAT_IDS"); raw != "" {
		ids, err := parseChatIDs(raw)
		if err != nil {
			return err
		}
		c.Telegram.ChatIDs = ids
	}
	return nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks every setting and reports all problems at once
func (c *Config) Validate() error {
	var errors []string

	if c.InputPath == "" {
		errors = append(errors, "input_path is required")
	}
	if c.OutputDir == "" {
		errors = append(errors, "output_dir is required")
	}
	if c.RollingWindow < 1 {
		errors = append(errors, "rolling_window must be at least 1")
	}
	if c.ZThreshold <= 0 {
		errors = append(errors, "z_threshold must be positive")
	}
	if c.RollingMultiplier < 0 {
		errors = append(errors, "rolling_multiplier must not be negative")
	}
	if c.ClusterK < 1 {
		errors = append(errors, "cluster_k must be at least 1")
	}
	if c.ElbowMaxK < 1 {
		errors = append(errors, "elbow_max_k must be at least 1")
	}
	if c.KMeansNInit < 1 {
		errors = append(errors, "kmeans_n_init must be at least 1")
	}
	if c.KMeansMaxIter < 1 {
		errors = append(errors, "kmeans_max_iter must be at least 1")
	}
	if c.KMeansTol < 0 {
		errors = append(errors, "kmeans_tol must not be negative")
	}
	if c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) == 0 {
		errors = append(errors, "telegram chat_ids are required when bot_token is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
