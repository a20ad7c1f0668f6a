package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultArchiveDatabase   = "raffle"
	defaultArchiveCollection = "events"
	defaultArchiveTimeout    = 5 * time.Second
)

// EventArchiveConfig configures the optional MongoDB copy of the event log
type EventArchiveConfig struct {
	MongoURI   string        `long:"mongouri" description:"MongoDB connection string; empty disables the archive"`
	Database   string        `long:"database" description:"The database holding the archived events"`
	Collection string        `long:"collection" description:"The collection holding the archived events"`
	Timeout    time.Duration `long:"timeout" description:"The timeout of each archive write"`
}

func DefaultEventArchiveConfig() *EventArchiveConfig {
	return &EventArchiveConfig{
		Database:   defaultArchiveDatabase,
		Collection: defaultArchiveCollection,
		Timeout:    defaultArchiveTimeout,
	}
}

func (cfg *EventArchiveConfig) Enabled() bool {
	return cfg.MongoURI != ""
}

func (cfg *EventArchiveConfig) Validate() error {
	if !cfg.Enabled() {
		return nil
	}
	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return fmt.Errorf("invalid mongo URI scheme")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return fmt.Errorf("archive database and collection cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("archive timeout must be positive, got %v", cfg.Timeout)
	}

	return nil
}
