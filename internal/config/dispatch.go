package config

import (
	"time"

	"godispatch/internal/utils"
)

type DispatchConfig struct {
	SearchRadiusKM   float64       `yaml:"search_radius_km"`
	MaxRadiusKM      float64       `yaml:"max_radius_km"`
	OptimizerTimeout time.Duration `yaml:"optimizer_timeout"`
	RedispatchWindow time.Duration `yaml:"redispatch_window"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		SearchRadiusKM:   getEnvAsFloat64("DISPATCH_SEARCH_RADIUS_KM", utils.DefaultSearchRadiusKM),
		MaxRadiusKM:      getEnvAsFloat64("DISPATCH_MAX_RADIUS_KM", utils.MaxSearchRadiusKM),
		OptimizerTimeout: getEnvAsDuration("DISPATCH_OPTIMIZER_TIMEOUT", utils.RouteOptimizerTimeout),
		RedispatchWindow: getEnvAsDuration("DISPATCH_REDISPATCH_WINDOW", utils.RedispatchWindow),
		SweepInterval:    getEnvAsDuration("DISPATCH_SWEEP_INTERVAL", utils.RedispatchSweepInterval),
	}
}
