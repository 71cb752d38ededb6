package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`
}

// SRSConfig contains the scheduling knobs. The values are converted once into
// engine parameters at startup; the engine itself never reads configuration.
type SRSConfig struct {
	// DesiredRetention is the recall probability the scheduler targets when
	// choosing intervals.
	DesiredRetention float64 `mapstructure:"desired_retention" validate:"required,gt=0,lt=1"`

	// MinIntervalDays and MaxIntervalDays bound every day-granularity interval.
	MinIntervalDays int `mapstructure:"min_interval_days" validate:"required,gte=1"`
	MaxIntervalDays int `mapstructure:"max_interval_days" validate:"required,gtefield=MinIntervalDays"`

	// LearningStepsMinutes and RelearningStepsMinutes are the intra-day step
	// ladders. An empty ladder means cards graduate immediately.
	LearningStepsMinutes   []int `mapstructure:"learning_steps_minutes" validate:"dive,gt=0"`
	RelearningStepsMinutes []int `mapstructure:"relearning_steps_minutes" validate:"dive,gt=0"`

	// FuzzFactor is the ± proportional jitter applied to day intervals.
	// Negative disables fuzzing; zero selects the engine default.
	FuzzFactor float64 `mapstructure:"fuzz_factor" validate:"lte=0.5"`
}
