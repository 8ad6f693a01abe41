package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// DefaultMetaURL points at the public pubnet ledger metadata bucket.
const DefaultMetaURL = "https://aws-public-blockchain.s3.us-east-2.amazonaws.com/v1.1/stellar/ledgers/pubnet"

// DefaultHorizonURL is the default ledger-head discovery endpoint.
const DefaultHorizonURL = "https://horizon.stellar.org/"

// Config is the full server configuration. Every flag also accepts the
// matching environment variable; the flag wins when both are set.
type Config struct {
	// Port to listen on (--port / PORT).
	Port int

	// Bind address (--bind / BIND_ADDRESS).
	Bind string

	// MetaURL is the base URL of the ledger metadata store
	// (--meta-url / META_URL).
	MetaURL string

	// StartLedger forces the sync starting point; 0 means auto
	// (--start-ledger / START_LEDGER).
	StartLedger uint

	// ParallelFetches is the sync fan-out width
	// (--parallel-fetches / PARALLEL_FETCHES).
	ParallelFetches int

	// CacheTTLDays is how long ledger partitions stay cached
	// (--cache-ttl-days / CACHE_TTL_DAYS).
	CacheTTLDays int

	// HorizonURL is the ledger-head discovery endpoint
	// (--horizon-url / HORIZON_URL).
	HorizonURL string

	// LogLevel is one of debug, info, warn, error
	// (--log-level / LOG_LEVEL).
	LogLevel string
}

// Load registers and parses the command-line flags, with environment
// variables supplying the defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("stellar-events-api", flag.ContinueOnError)

	cfg := &Config{}
	fs.IntVar(&cfg.Port, "port", getEnvAsInt("PORT", 3000), "Port to listen on")
	fs.StringVar(&cfg.Bind, "bind", getEnv("BIND_ADDRESS", "0.0.0.0"), "Bind address")
	fs.StringVar(&cfg.MetaURL, "meta-url", getEnv("META_URL", DefaultMetaURL), "Base URL for the ledger metadata store")
	fs.UintVar(&cfg.StartLedger, "start-ledger", uint(getEnvAsInt("START_LEDGER", 0)), "Ledger sequence to start syncing from (0 = auto)")
	fs.IntVar(&cfg.ParallelFetches, "parallel-fetches", getEnvAsInt("PARALLEL_FETCHES", 10), "Number of ledgers to fetch concurrently during sync")
	fs.IntVar(&cfg.CacheTTLDays, "cache-ttl-days", getEnvAsInt("CACHE_TTL_DAYS", 1), "How long to keep cached ledger data, in days")
	fs.StringVar(&cfg.HorizonURL, "horizon-url", getEnv("HORIZON_URL", DefaultHorizonURL), "Ledger head discovery endpoint")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.MetaURL == "" {
		return fmt.Errorf("meta-url is required")
	}
	if c.ParallelFetches < 1 {
		return fmt.Errorf("parallel-fetches must be at least 1")
	}
	if c.CacheTTLDays < 1 {
		return fmt.Errorf("cache-ttl-days must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log-level must be one of: debug, info, warn, error")
	}
	return nil
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
