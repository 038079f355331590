package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`

	// Engine tuning. The forecast factors shape the utilization band; the
	// defaults mirror the documented ±15%/+10% no-show variance assumption.
	SlotGranularityMinutes    int     `mapstructure:"SLOT_GRANULARITY_MINUTES"`
	ForecastOptimisticFactor  float64 `mapstructure:"FORECAST_OPTIMISTIC_FACTOR"`
	ForecastPessimisticFactor float64 `mapstructure:"FORECAST_PESSIMISTIC_FACTOR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SLOT_GRANULARITY_MINUTES", 15)
	v.SetDefault("FORECAST_OPTIMISTIC_FACTOR", 1.10)
	v.SetDefault("FORECAST_PESSIMISTIC_FACTOR", 0.85)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("SLOT_GRANULARITY_MINUTES")
	v.BindEnv("FORECAST_OPTIMISTIC_FACTOR")
	v.BindEnv("FORECAST_PESSIMISTIC_FACTOR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SlotGranularityMinutes <= 0 {
		return nil, fmt.Errorf("SLOT_GRANULARITY_MINUTES must be positive, got %d", cfg.SlotGranularityMinutes)
	}
	if !cfg.IsDev() && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("JWT_SIGNING_KEY is required outside development")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
