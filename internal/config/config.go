// Package config loads application configuration from the environment
// and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunables for the planner.
type Config struct {
	Addr    string `mapstructure:"addr"`
	DataDir string `mapstructure:"data_dir"`
	Debug   bool   `mapstructure:"debug"`

	PMS struct {
		BaseURL string        `mapstructure:"base_url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"pms"`

	Sync struct {
		RefreshIntervalMin    int `mapstructure:"refresh_interval_min"`
		BookingWindowDays     int `mapstructure:"booking_window_days"`
		ExpandHorizonDays     int `mapstructure:"expand_horizon_days"`
		DefaultPlannedMinutes int `mapstructure:"default_planned_minutes"`
	} `mapstructure:"sync"`
}

// Load reads configuration with TP_ environment variables taking
// precedence over an optional config file (TP_CONFIG or ./config.yaml).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8099")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("debug", false)
	v.SetDefault("pms.base_url", "https://api.smoobu.com")
	v.SetDefault("pms.api_key", "")
	v.SetDefault("pms.timeout", 30*time.Second)
	v.SetDefault("sync.refresh_interval_min", 60)
	v.SetDefault("sync.booking_window_days", 60)
	v.SetDefault("sync.expand_horizon_days", 30)
	v.SetDefault("sync.default_planned_minutes", 90)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Sync.RefreshIntervalMin < 1 {
		cfg.Sync.RefreshIntervalMin = 60
	}
	if cfg.Sync.BookingWindowDays < 1 {
		cfg.Sync.BookingWindowDays = 60
	}
	if cfg.Sync.ExpandHorizonDays < 1 {
		cfg.Sync.ExpandHorizonDays = 30
	}
	if cfg.Sync.DefaultPlannedMinutes < 1 {
		cfg.Sync.DefaultPlannedMinutes = 90
	}

	return cfg, nil
}
