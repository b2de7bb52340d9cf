package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	PostgresURL string `env:"POSTGRES_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR"`

	APIServerAddr   string `env:"API_SERVER_ADDR" envDefault:":8001"`
	AdminServerAddr string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`

	// Log collection
	LogBasePath   string        `env:"LOG_BASE_PATH" envDefault:"/mnt/vm-security"`
	LogHost       string        `env:"LOG_HOST"` // when set, collect over SSH instead of locally
	SSHUser       string        `env:"SSH_USER" envDefault:"i4ops"`
	SSHTimeout    time.Duration `env:"SSH_TIMEOUT" envDefault:"30s"`
	TailLines     int           `env:"TAIL_LINES" envDefault:"1000"`
	ScanInterval  time.Duration `env:"SCAN_INTERVAL" envDefault:"5m"`
	ScanWorkers   int           `env:"SCAN_WORKERS" envDefault:"4"`
	CollectPerSec float64       `env:"COLLECT_PER_SEC" envDefault:"10"`

	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
