package config

import (
	"time"

	"godispatch/internal/utils"
)

type TrackerConfig struct {
	Backend            string        `yaml:"backend"` // memory or redis
	StalenessThreshold time.Duration `yaml:"staleness_threshold"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

func loadTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		Backend:            getEnv("TRACKER_BACKEND", "memory"),
		StalenessThreshold: getEnvAsDuration("TRACKER_STALENESS_THRESHOLD", utils.DefaultStalenessThreshold),
		EvictionInterval:   getEnvAsDuration("TRACKER_EVICTION_INTERVAL", utils.DefaultEvictionInterval),
	}
}
