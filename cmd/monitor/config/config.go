package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration loaded from environment variables
type Config struct {
	RPCURL       string `env:"RPC_URL" envDefault:"http://localhost:8545"`
	TokenAddress string `env:"TOKEN_ADDRESS,required"`

	Watch    []string      `env:"MONITOR_WATCH,required" envSeparator:","`
	Interval time.Duration `env:"MONITOR_INTERVAL" envDefault:"30s"`

	// Scrape endpoint, disabled when unset
	MetricsAddr string `env:"MONITOR_METRICS_ADDR"`

	MaxDepth         int           `env:"DELEGATION_MAX_DEPTH" envDefault:"10"`
	Concurrency      int           `env:"DELEGATION_CONCURRENCY" envDefault:"8"`
	RPCRetries       uint64        `env:"RPC_RETRIES" envDefault:"2"`
	RPCRetryInterval time.Duration `env:"RPC_RETRY_INTERVAL" envDefault:"250ms"`
	RPCCallTimeout   time.Duration `env:"RPC_CALL_TIMEOUT" envDefault:"10s"`

	PowerCacheTTL  time.Duration `env:"POWER_CACHE_TTL" envDefault:"30s"`
	PowerCacheSize int           `env:"POWER_CACHE_SIZE" envDefault:"1024"`

	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"LOG_HUMAN_FRIENDLY" envDefault:"true"`
}

// New loads all configuration from environment variables
func New() Config {
	return env.Must(env.ParseAs[Config]())
}

// Parse loads configuration from the given variables instead of the process environment
func Parse(environment map[string]string) (Config, error) {
	return env.ParseAsWithOptions[Config](env.Options{Environment: environment})
}
