package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTExpiryH  int    `env:"JWT_EXPIRY_HOURS" envDefault:"24"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Upstream price source for the token's USD rate.
	RateSourceURL      string `env:"RATE_SOURCE_URL" envDefault:"https://api.coincap.io"`
	RateAssetID        string `env:"RATE_ASSET_ID" envDefault:"toncoin"`
	RateTTLSeconds     int    `env:"RATE_TTL_S" envDefault:"300"`
	RateTimeoutSeconds int    `env:"RATE_FETCH_TIMEOUT_S" envDefault:"5"`

	// WithdrawFailOpenNoRate lets withdrawal requests through without the
	// minimum-value check when no rate is available. When false, requests
	// are refused until a rate can be fetched.
	WithdrawFailOpenNoRate bool `env:"WITHDRAW_FAIL_OPEN_NO_RATE" envDefault:"true"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
