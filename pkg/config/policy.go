package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Policy is the scaling policy document. It is merged over built-in
// defaults at load time and written back to disk so the file always shows
// the full effective policy; keys this version does not recognize survive
// the round trip.
type Policy struct {
	MinInstances        int            `json:"min_instances" mapstructure:"min_instances"`
	MaxInstances        int            `json:"max_instances" mapstructure:"max_instances"`
	ScaleUpThreshold    float64        `json:"scale_up_threshold" mapstructure:"scale_up_threshold"`
	ScaleDownThreshold  float64        `json:"scale_down_threshold" mapstructure:"scale_down_threshold"`
	ScaleUpCooldown     int            `json:"scale_up_cooldown" mapstructure:"scale_up_cooldown"`
	ScaleDownCooldown   int            `json:"scale_down_cooldown" mapstructure:"scale_down_cooldown"`
	ConfidenceThreshold float64        `json:"confidence_threshold" mapstructure:"confidence_threshold"`
	ResourceLimits      ResourceLimits `json:"resource_limits" mapstructure:"resource_limits"`
}

type ResourceLimits struct {
	CPUCores  float64 `json:"cpu_cores" mapstructure:"cpu_cores"`
	MemoryGB  float64 `json:"memory_gb" mapstructure:"memory_gb"`
	StorageGB float64 `json:"storage_gb" mapstructure:"storage_gb"`
}

func (p *Policy) ScaleUpCooldownDuration() time.Duration {
	return time.Duration(p.ScaleUpCooldown) * time.Second
}

func (p *Policy) ScaleDownCooldownDuration() time.Duration {
	return time.Duration(p.ScaleDownCooldown) * time.Second
}

// LoadPolicy reads the policy document at path, merges it over defaults
// and rewrites the merged result. A missing file is replaced by defaults;
// a malformed one is a hard error.
func LoadPolicy(path string) (*Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setPolicyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
	}

	var p Policy
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := v.WriteConfigAs(path); err != nil {
		return nil, fmt.Errorf("failed to write policy file: %w", err)
	}

	return &p, nil
}

func setPolicyDefaults(v *viper.Viper) {
	v.SetDefault("min_instances", 1)
	v.SetDefault("max_instances", 10)
	v.SetDefault("scale_up_threshold", 70.0)
	v.SetDefault("scale_down_threshold", 30.0)
	v.SetDefault("scale_up_cooldown", 300)
	v.SetDefault("scale_down_cooldown", 600)
	v.SetDefault("confidence_threshold", 0.6)
	v.SetDefault("resource_limits.cpu_cores", 16.0)
	v.SetDefault("resource_limits.memory_gb", 32.0)
	v.SetDefault("resource_limits.storage_gb", 500.0)
}

func (p *Policy) Validate() error {
	var errs []error

	if p.MinInstances < 1 {
		errs = append(errs, errors.New("min_instances must be at least 1"))
	}
	if p.MaxInstances < p.MinInstances {
		errs = append(errs, errors.New("max_instances must be >= min_instances"))
	}
	if p.ScaleUpThreshold <= 0 || p.ScaleUpThreshold > 100 {
		errs = append(errs, errors.New("scale_up_threshold must be between 0 and 100"))
	}
	if p.ScaleDownThreshold < 0 || p.ScaleDownThreshold >= p.ScaleUpThreshold {
		errs = append(errs, errors.New("scale_down_threshold must be below scale_up_threshold"))
	}
	if p.ScaleUpCooldown < 0 {
		errs = append(errs, errors.New("scale_up_cooldown must not be negative"))
	}
	if p.ScaleDownCooldown < 0 {
		errs = append(errs, errors.New("scale_down_cooldown must not be negative"))
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		errs = append(errs, errors.New("confidence_threshold must be between 0 and 1"))
	}
	if p.ResourceLimits.CPUCores <= 0 {
		errs = append(errs, errors.New("resource_limits.cpu_cores must be positive"))
	}
	if p.ResourceLimits.MemoryGB <= 0 {
		errs = append(errs, errors.New("resource_limits.memory_gb must be positive"))
	}
	if p.ResourceLimits.StorageGB <= 0 {
		errs = append(errs, errors.New("resource_limits.storage_gb must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("policy validation failed: %v", errs)
	}

	return nil
}
