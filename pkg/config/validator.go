package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.App.PolicyFile == "" {
		errs = append(errs, errors.New("app.policy_file is required"))
	}

	// Database validation only matters when the history sink is on
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Telemetry validation
	validSources := map[string]bool{"system": true, "sim": true}
	if !validSources[c.Telemetry.Source] {
		errs = append(errs, errors.New("telemetry.source must be one of: system, sim"))
	}
	if c.Telemetry.Interval <= 0 {
		errs = append(errs, errors.New("telemetry.interval must be positive"))
	}
	if c.Telemetry.Timeout <= 0 {
		errs = append(errs, errors.New("telemetry.timeout must be positive"))
	}
	if c.Telemetry.Timeout >= c.Telemetry.Interval {
		errs = append(errs, errors.New("telemetry.timeout must be less than telemetry.interval"))
	}
	if c.Telemetry.StoreCapacity <= 0 {
		errs = append(errs, errors.New("telemetry.store_capacity must be positive"))
	}

	// Forecast validation
	if c.Forecast.Horizon <= 0 {
		errs = append(errs, errors.New("forecast.horizon must be positive"))
	}
	if c.Forecast.AnomalyWindow <= 0 {
		errs = append(errs, errors.New("forecast.anomaly_window must be positive"))
	}

	// Decision loop validation
	if c.Decision.Interval <= 0 {
		errs = append(errs, errors.New("decision.interval must be positive"))
	}
	if c.Decision.RecentSamples <= 0 {
		errs = append(errs, errors.New("decision.recent_samples must be positive"))
	}
	if c.Decision.HistoryLimit <= 0 {
		errs = append(errs, errors.New("decision.history_limit must be positive"))
	}

	// Lifecycle validation
	if c.Lifecycle.StateFile == "" {
		errs = append(errs, errors.New("lifecycle.state_file is required"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
