package config

import (
	"fmt"
	"time"
)

const (
	defaultUpkeepCheckInterval = 5 * time.Second
)

// UpkeepConfig configures the keeper that triggers draws
type UpkeepConfig struct {
	Enabled       bool          `long:"enabled" description:"Run the built-in keeper that performs upkeep when it is needed"`
	CheckInterval time.Duration `long:"checkinterval" description:"The interval between each upkeep check"`
}

func DefaultUpkeepConfig() *UpkeepConfig {
	return &UpkeepConfig{
		Enabled:       true,
		CheckInterval: defaultUpkeepCheckInterval,
	}
}

func (cfg *UpkeepConfig) Validate() error {
	if cfg.CheckInterval <= 0 {
		return fmt.Errorf("upkeep check interval must be positive, got %v", cfg.CheckInterval)
	}

	return nil
}
