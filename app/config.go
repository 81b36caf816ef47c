package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// NgrokConfig controls the optional public tunnel
type NgrokConfig struct {
	Enabled   bool   `env:"ENABLED"`
	AuthToken string `env:"AUTHTOKEN"`
	Domain    string `env:"DOMAIN"`
}

// Config is the server configuration, read from the environment
type Config struct {
	Host      string `env:"LUDO_HOST" envDefault:"localhost"`
	Port      int    `env:"LUDO_PORT" envDefault:"8080"`
	ConfigDir string `env:"CONFIG_DIR" envDefault:"configs"`

	StoreKind string `env:"LUDO_STORE" envDefault:"memory"`
	StorePath string `env:"LUDO_STORE_PATH" envDefault:"data"`

	JWTSecret string `env:"LUDO_JWT_SECRET"`
	JWTIssuer string `env:"LUDO_JWT_ISSUER" envDefault:"ludo-arena"`
	// MCPToken is the default credential the /mcp endpoint acts with
	MCPToken string `env:"LUDO_MCP_TOKEN"`

	// AutoPassDelay below zero disables automatic passing
	AutoPassDelay     time.Duration `env:"LUDO_AUTO_PASS_DELAY" envDefault:"-1s"`
	MaxAttempts       int           `env:"LUDO_MAX_ATTEMPTS" envDefault:"8"`
	CleanupInterval   time.Duration `env:"LUDO_CLEANUP_INTERVAL" envDefault:"1h"`
	FinishedRetention time.Duration `env:"LUDO_FINISHED_RETENTION" envDefault:"24h"`

	LogLevel  string `env:"LUDO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LUDO_LOG_FORMAT" envDefault:"text"`

	OTelEndpoint string `env:"LUDO_OTEL_ENDPOINT"`

	Ngrok NgrokConfig `envPrefix:"NGROK_"`
}

// LoadConfig reads .env when present and parses the environment
func LoadConfig() (Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Error loading .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Addr returns host:port
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration before anything is opened
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.StoreKind {
	case StoreMemory:
	case StoreFile, StoreBolt, StoreSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			return fmt.Errorf("store %s needs LUDO_STORE_PATH", c.StoreKind)
		}
	default:
		return fmt.Errorf("unknown store %q (memory, file, bolt, sqlite)", c.StoreKind)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("LUDO_JWT_SECRET is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from the config
func NewLogger(c Config) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
