package featurestore

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the environment-driven settings of the feature store.
type Config struct {
	DefaultTTL    time.Duration `env:"FEATURE_STORE_TTL" envDefault:"1h"`                  // DefaultTTL applies to writes without an explicit TTL.
	CacheTimeout  time.Duration `env:"FEATURE_STORE_CACHE_TIMEOUT" envDefault:"250ms"`     // CacheTimeout is the per-call cache deadline.
	StoreTimeout  time.Duration `env:"FEATURE_STORE_DB_TIMEOUT" envDefault:"3s"`           // StoreTimeout is the per-call durable store deadline.
	SweepInterval time.Duration `env:"FEATURE_STORE_SWEEP_INTERVAL" envDefault:"5m"`       // SweepInterval is how often the TTL sweep runs.
}

// LoadConfig reads the configuration from the environment, loading a .env
// file first when one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}
