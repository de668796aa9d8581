// Package config loads service configuration from file and environment via
// viper. Every key has a default so the daemon starts with no config file.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mosaiclabs/soltss/pkg/types"
)

// Config is the resolved daemon configuration.
type Config struct {
	ListenAddr         string
	Environment        string
	Network            types.Network
	SessionTTL         time.Duration
	SweepInterval      time.Duration
	DataDir            string
	RateLimitPerMinute int
	Debug              bool
}

// InitViperConfig wires viper to config.yaml in the working directory plus
// SOLTSS_ prefixed environment variables, and installs defaults.
func InitViperConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("soltss")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("environment", "development")
	viper.SetDefault("network", string(types.NetworkDevnet))
	viper.SetDefault("session_ttl", "2m")
	viper.SetDefault("sweep_interval", "15s")
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("rate_limit_per_minute", 120)
	viper.SetDefault("debug", false)

	// A missing config file is fine; defaults and env cover everything.
	_ = viper.ReadInConfig()
}

// Load resolves the typed configuration from viper's current state.
func Load() Config {
	return Config{
		ListenAddr:         viper.GetString("listen_addr"),
		Environment:        viper.GetString("environment"),
		Network:            types.Network(viper.GetString("network")),
		SessionTTL:         viper.GetDuration("session_ttl"),
		SweepInterval:      viper.GetDuration("sweep_interval"),
		DataDir:            viper.GetString("data_dir"),
		RateLimitPerMinute: viper.GetInt("rate_limit_per_minute"),
		Debug:              viper.GetBool("debug"),
	}
}
