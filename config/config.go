package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"dkpauction/database"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// HTTP surface
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// NATS configuration
	NATSEnabled bool   `env:"NATS_ENABLED" envDefault:"true"`
	NATSServers string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"` // comma-separated

	// Auction rules
	SnipeThreshold         time.Duration `env:"SNIPE_THRESHOLD" envDefault:"30s"`
	SnipeExtension         time.Duration `env:"SNIPE_EXTENSION" envDefault:"30s"`
	MaxSnipeExtension      time.Duration `env:"MAX_SNIPE_EXTENSION" envDefault:"5m"`
	DefaultAuctionDuration time.Duration `env:"DEFAULT_AUCTION_DURATION" envDefault:"5m"`
	DefaultMinBid          int64         `env:"DEFAULT_MIN_BID" envDefault:"0"`

	// Ledger
	BalanceCap int64 `env:"DKP_BALANCE_CAP" envDefault:"0"` // 0 means uncapped

	// Settlement
	SettlementSweepInterval time.Duration `env:"SETTLEMENT_SWEEP_INTERVAL" envDefault:"1m"`
	SettlementTimeout       time.Duration `env:"SETTLEMENT_TIMEOUT" envDefault:"15s"`
	TxMaxRetries            uint64        `env:"TX_MAX_RETRIES" envDefault:"5"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// OpenTelemetry
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"dkpauction"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // console, otlp, none
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MS" envDefault:"10000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, production, test
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NATSServerList splits NATSServers into individual URLs
func (c *Config) NATSServerList() []string {
	var servers []string
	for _, s := range strings.Split(c.NATSServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// load reads an optional .env file and then the process environment
func load() (*Config, error) {
	// A missing .env is normal in containers
	_ = godotenv.Load()

	return Parse()
}

// Parse builds a Config from the current environment and validates it
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != "test" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		errs = append(errs, errors.New("DATABASE_NAME cannot be empty when provided"))
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"SNIPE_THRESHOLD", c.SnipeThreshold},
		{"SNIPE_EXTENSION", c.SnipeExtension},
		{"MAX_SNIPE_EXTENSION", c.MaxSnipeExtension},
		{"DEFAULT_AUCTION_DURATION", c.DefaultAuctionDuration},
		{"SETTLEMENT_SWEEP_INTERVAL", c.SettlementSweepInterval},
		{"SETTLEMENT_TIMEOUT", c.SettlementTimeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}

	if c.MaxSnipeExtension < c.SnipeExtension {
		errs = append(errs, errors.New("MAX_SNIPE_EXTENSION must be at least SNIPE_EXTENSION"))
	}
	if c.DefaultMinBid < 0 {
		errs = append(errs, errors.New("DEFAULT_MIN_BID cannot be negative"))
	}
	if c.BalanceCap < 0 {
		errs = append(errs, errors.New("DKP_BALANCE_CAP cannot be negative"))
	}

	return errors.Join(errs...)
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a config with production rule defaults suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:                ":0",
		SnipeThreshold:          30 * time.Second,
		SnipeExtension:          30 * time.Second,
		MaxSnipeExtension:       5 * time.Minute,
		DefaultAuctionDuration:  5 * time.Minute,
		DefaultMinBid:           0,
		SettlementSweepInterval: time.Minute,
		SettlementTimeout:       15 * time.Second,
		TxMaxRetries:            5,
		LogLevel:                "info",
		LogFormat:               "text",
		OTelServiceName:         "dkpauction",
		OTelExporterType:        "none",
		Environment:             "test",
	}
}
