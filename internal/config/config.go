package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth" validate:"required"`
	Collaborator CollaboratorConfig `mapstructure:"collaborator" validate:"required"`
	Study        StudyConfig        `mapstructure:"study" validate:"required"`
	Sessions     SessionsConfig     `mapstructure:"sessions" validate:"required"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects where completed session history is recorded.
// An empty driver keeps history in memory.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required_with=Driver"`
}

// AuthConfig contains the secret shared with the collaborator that issues bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// CollaboratorConfig points at the REST service owning decks, cards and per-card progress.
type CollaboratorConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RemoteSummary makes the collaborator's summary authoritative over the locally computed one.
	RemoteSummary bool `mapstructure:"remote_summary"`
}

// StudyConfig holds the tunable constants of the study-session engine.
type StudyConfig struct {
	QuestionLimit    int `mapstructure:"question_limit" validate:"gte=1,lte=50"`
	NewLimit         int `mapstructure:"new_limit" validate:"gte=0,lte=30"`
	OldTarget        int `mapstructure:"old_target" validate:"gte=0"`
	MaxAppearPerCard int `mapstructure:"max_appear_per_card" validate:"gte=1"`
	MinGap           int `mapstructure:"min_gap" validate:"gte=0"`
	NumChoices       int `mapstructure:"num_choices" validate:"gte=2,lte=8"`
	AutoNextMS       int `mapstructure:"auto_next_ms" validate:"gt=0"`
	TickMS           int `mapstructure:"tick_ms" validate:"gt=0,ltefield=AutoNextMS"`
}

// SessionsConfig controls the lifetime of live sessions held by the server.
type SessionsConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	// HistoryRetention is how long completed session records are kept. Zero keeps them forever.
	HistoryRetention time.Duration `mapstructure:"history_retention" validate:"gte=0"`
}

// TelemetryConfig sizes the fire-and-forget dispatcher for answer reports.
type TelemetryConfig struct {
	Workers   int           `mapstructure:"workers" validate:"gte=1"`
	QueueSize int           `mapstructure:"queue_size" validate:"gte=1"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}
