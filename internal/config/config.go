package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config carries every runtime setting of the service. Values come from a
// config file when present, with environment variables taking precedence.
type Config struct {
	Port        int    `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	WebhookURL  string `mapstructure:"webhook_url"`

	ScorerConcurrency   int     `mapstructure:"scorer_concurrency"`
	CapacityHorizonDays int     `mapstructure:"capacity_horizon_days"`
	ReferenceWeeklyLoad int     `mapstructure:"reference_weekly_load"`
	WorkloadBand        float64 `mapstructure:"workload_band"`
	EquipmentCacheTTL   string  `mapstructure:"equipment_cache_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	// Empty defaults register the keys so AutomaticEnv picks them up
	// during Unmarshal.
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("webhook_url", "")
	v.SetDefault("scorer_concurrency", 8)
	v.SetDefault("capacity_horizon_days", 7)
	v.SetDefault("reference_weekly_load", 50)
	v.SetDefault("workload_band", 0.20)
	v.SetDefault("equipment_cache_ttl", "5m")
}

// Load reads configuration from the given file path (optional, "" for none)
// and the ROUTING_* environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("routing")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required")
	}
	if cfg.WorkloadBand <= 0 || cfg.WorkloadBand >= 1 {
		return nil, fmt.Errorf("workload_band must be in (0, 1), got %v", cfg.WorkloadBand)
	}
	return &cfg, nil
}
