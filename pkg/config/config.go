package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Trainer  TrainerConfig  `yaml:"trainer"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // "sqlite" or "postgres"
	DSN  string `yaml:"dsn"`
	Path string `yaml:"path"` // For SQLite: file path
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TrainerConfig carries presentation timing for the puzzle engine and
// session controller. These gate UI pacing only, never correctness.
type TrainerConfig struct {
	FeedbackWindow  time.Duration `yaml:"feedback_window"`
	HintWindow      time.Duration `yaml:"hint_window"`
	SolvedDelay     time.Duration `yaml:"solved_delay"`
	AdvanceDelay    time.Duration `yaml:"advance_delay"`
	ShowHints       bool          `yaml:"show_hints"`
	EnableAnimation bool          `yaml:"enable_animation"`
}

// Load builds configuration from defaults, an optional YAML file
// (CONFIG_FILE, default ./config.yaml) and environment overrides.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "./config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Env:  "development",
		},
		Database: DatabaseConfig{
			Type: "sqlite", // Default to SQLite for development
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Trainer: TrainerConfig{
			FeedbackWindow:  2 * time.Second,
			HintWindow:      3 * time.Second,
			SolvedDelay:     1500 * time.Millisecond,
			AdvanceDelay:    2 * time.Second,
			ShowHints:       true,
			EnableAnimation: true,
		},
	}
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Env = getEnv("ENV", c.Server.Env)

	c.Database.Type = getEnv("DB_TYPE", c.Database.Type)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	if v, ok := os.LookupEnv("SHOW_HINTS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trainer.ShowHints = b
		}
	}

	dsn, dbPath := buildDSN(c.Database.Type)
	if c.Database.DSN == "" {
		c.Database.DSN = dsn
	}
	if c.Database.Path == "" {
		c.Database.Path = dbPath
	}
}

func buildDSN(dbType string) (string, string) {
	if dbType == "postgres" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "chess_trainer")
		sslMode := getEnv("DB_SSLMODE", "disable")

		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbHost, dbPort, dbUser, dbPassword, dbName, sslMode,
		)
		return dsn, ""
	}

	// SQLite configuration (default for development)
	dbPath := getEnv("SQLITE_PATH", "./data/chess_trainer.db")
	dsn := dbPath + "?mode=rwc&cache=shared&timeout=5000"
	return dsn, dbPath
}

// Validate checks configuration consistency before startup.
func (c *Config) Validate() error {
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %q", c.Database.Type)
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}
	if c.Trainer.FeedbackWindow <= 0 || c.Trainer.HintWindow <= 0 ||
		c.Trainer.SolvedDelay < 0 || c.Trainer.AdvanceDelay < 0 {
		return fmt.Errorf("trainer timing values must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
