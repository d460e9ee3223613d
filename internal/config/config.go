package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GitHubConfig groups the GitHub App credentials.
type GitHubConfig struct {
	AppID          int64
	WebhookSecret  string
	PrivateKeyPath string
	// Token is a PAT used by the CLI instead of App credentials.
	Token string
}

// RunnerConfig describes how reviewer processes are launched.
type RunnerConfig struct {
	Bin           string
	Agent         string
	Model         string
	AspectTimeout time.Duration
	// RunTimeout is the wall-clock budget for one whole review run, all
	// aspects included.
	RunTimeout time.Duration
}

// DBConfig holds the Postgres connection settings for server mode.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort  string
	LogLevel    slog.Level
	MaxWorkers  int
	ArtifactDir string

	GitHub GitHubConfig
	Runner RunnerConfig
	DB     *DBConfig
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_WORKERS", 4)
	viper.SetDefault("ARTIFACT_DIR", ".tribunal")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/tribunal-app.private-key.pem")
	viper.SetDefault("RUNNER_BIN", "opencode")
	viper.SetDefault("RUNNER_ASPECT_TIMEOUT", "10m")
	viper.SetDefault("RUNNER_RUN_TIMEOUT", "30m")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := &Config{
		ServerPort:  viper.GetString("SERVER_PORT"),
		LogLevel:    parseLogLevel(viper.GetString("LOG_LEVEL")),
		MaxWorkers:  viper.GetInt("MAX_WORKERS"),
		ArtifactDir: viper.GetString("ARTIFACT_DIR"),
		GitHub: GitHubConfig{
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			WebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
			Token:          viper.GetString("GITHUB_TOKEN"),
		},
		Runner: RunnerConfig{
			Bin:           viper.GetString("RUNNER_BIN"),
			Agent:         viper.GetString("RUNNER_AGENT"),
			Model:         viper.GetString("RUNNER_MODEL"),
			AspectTimeout: viper.GetDuration("RUNNER_ASPECT_TIMEOUT"),
			RunTimeout:    viper.GetDuration("RUNNER_RUN_TIMEOUT"),
		},
	}

	// The database is only wired when a host is configured; CLI runs keep
	// their state on disk instead.
	if host := viper.GetString("DB_HOST"); host != "" {
		cfg.DB = &DBConfig{
			Host:            host,
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		}
	}

	return cfg, nil
}

// ValidateServer checks the fields server mode cannot run without. The CLI
// authenticates with a token and skips these.
func (c *Config) ValidateServer() error {
	if c.GitHub.AppID == 0 {
		return fmt.Errorf("GITHUB_APP_ID must be set")
	}
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		slog.Warn("unrecognized log level, defaulting to info", "provided", s)
		return slog.LevelInfo
	}
}
