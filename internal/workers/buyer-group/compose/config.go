package compose

import (
	"fmt"
	"time"

	"buyer-group-workers/internal/buyergroup"
	"buyer-group-workers/internal/common/config"
)

// ConfigKey is the workers.* entry in config.yaml.
const ConfigKey = "buyer-group-compose"

type Config struct {
	Enabled          bool                        `mapstructure:"enabled"`
	MaxJobsActive    int                         `mapstructure:"max_jobs_active"`
	Timeout          time.Duration               `mapstructure:"timeout"`
	Constraints      buyergroup.GroupConstraints `mapstructure:"-"`
	RemediateInvalid bool                        `mapstructure:"remediate_invalid"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Constraints:   buyergroup.DefaultConstraints(),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if err := c.Constraints.Validate(); err != nil {
		return fmt.Errorf("constraints: %w", err)
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) (*Config, error) {
	if customConfig != nil {
		return customConfig, nil
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg, nil
	}

	if workerCfg, exists := appConfig.Workers[ConfigKey]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}

	constraints, err := appConfig.BuyerGroup.Constraints()
	if err != nil {
		return nil, err
	}
	cfg.Constraints = constraints
	cfg.RemediateInvalid = appConfig.BuyerGroup.RemediateInvalid
	return cfg, nil
}
