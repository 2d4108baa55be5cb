package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleet-advisor")
	}

	// Environment variable settings
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fleet-advisor")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.policy_file", "scaling_policy.json")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Database defaults (history sink is opt-in)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fleet_advisor")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Telemetry defaults
	v.SetDefault("telemetry.source", "system")
	v.SetDefault("telemetry.interval", "60s")
	v.SetDefault("telemetry.timeout", "5s")
	v.SetDefault("telemetry.store_capacity", 1000)
	v.SetDefault("telemetry.circuit_breaker.max_failures", 5)
	v.SetDefault("telemetry.circuit_breaker.timeout", "30s")

	// Forecast defaults
	v.SetDefault("forecast.horizon", 5)
	v.SetDefault("forecast.anomaly_window", 20)

	// Decision loop defaults
	v.SetDefault("decision.interval", "5m")
	v.SetDefault("decision.recent_samples", 30)
	v.SetDefault("decision.history_limit", 5)

	// Lifecycle defaults
	v.SetDefault("lifecycle.state_file", "resource_state.json")
	v.SetDefault("lifecycle.provision_step_time", "200ms")
	v.SetDefault("lifecycle.shutdown_step_time", "100ms")
	v.SetDefault("lifecycle.maintain_step_time", "100ms")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.default_limit", 100)
	v.SetDefault("api.max_limit", 1000)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
