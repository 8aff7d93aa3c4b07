package config

import (
	"fmt"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Engine.validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if _, err := time.LoadLocation(e.OrgTimezone); err != nil {
		return fmt.Errorf("org_timezone %q: %w", e.OrgTimezone, err)
	}
	if e.LinkCoverageThreshold < 0 || e.LinkCoverageThreshold > 1 {
		return fmt.Errorf("link_coverage_threshold must be within [0,1] (got %v)", e.LinkCoverageThreshold)
	}
	if e.SurfaceThreshold < 1 {
		return fmt.Errorf("surface_threshold must be >= 1 (got %d)", e.SurfaceThreshold)
	}
	if e.RegressionWatchDays <= 0 {
		return fmt.Errorf("regression_watch_days must be > 0 (got %d)", e.RegressionWatchDays)
	}
	if e.ResolutionUrgencyDays <= 0 {
		return fmt.Errorf("resolution_urgency_days must be > 0 (got %d)", e.ResolutionUrgencyDays)
	}
	return nil
}

// Timezone returns the parsed org timezone. Validate guarantees the
// name loads, so errors here are impossible after a successful Load.
func (e *EngineConfig) Timezone() *time.Location {
	loc, err := time.LoadLocation(e.OrgTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
