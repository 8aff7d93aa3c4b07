package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// EngineConfig holds the consistency-engine parameters. All window
// lengths are calendar days, counted at org-local midnight.
type EngineConfig struct {
	// OrgTimezone is the IANA timezone all window boundaries are
	// computed in. The deployment is single-tenant; one zone covers
	// every client.
	OrgTimezone string `yaml:"org_timezone" env:"ENGINE_ORG_TIMEZONE" env-default:"UTC"`

	// LinkCoverageThreshold is the minimum fraction of linked tasks
	// required for the coverage gate and for health scoring.
	LinkCoverageThreshold float64 `yaml:"link_coverage_threshold" env:"ENGINE_LINK_COVERAGE_THRESHOLD" env-default:"0.8"`

	// SurfaceThreshold is the count of linked unsuppressed signals at
	// which a detected issue is surfaced.
	SurfaceThreshold int `yaml:"surface_threshold" env:"ENGINE_SURFACE_THRESHOLD" env-default:"3"`

	// RegressionWatchDays is the post-resolution window during which a
	// recurrence reopens the issue.
	RegressionWatchDays int `yaml:"regression_watch_days" env:"ENGINE_REGRESSION_WATCH_DAYS" env-default:"90"`

	// ResolutionUrgencyDays is how close a due date must be for a
	// resolution queue entry to get top priority.
	ResolutionUrgencyDays int `yaml:"resolution_urgency_days" env:"ENGINE_RESOLUTION_URGENCY_DAYS" env-default:"7"`
}
