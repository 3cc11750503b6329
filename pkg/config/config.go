// Package config loads the scheduling core's runtime knobs: the PRNG seed,
// the backtracking iteration cap, and log level/format. Everything else the
// teacher app configures (database, cache, auth, HTTP, ...) belongs to the
// external collaborators this module does not own.
package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config bundles this module's environment and runtime knobs.
type Config struct {
	Env       string
	Log       LogConfig
	Scheduler SchedulerConfig
}

// LogConfig controls the zap encoder built by pkg/logger.
type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig carries the run-level knobs spec.md leaves to the caller:
// the PRNG seed (for reproducible runs) and the backtracking iteration cap.
type SchedulerConfig struct {
	RandSeed               int64
	MaxBacktrackIterations int
}

// Load reads settings from the environment (optionally via a .env file) into a
// Config, applying defaults for anything left unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Scheduler: SchedulerConfig{
			RandSeed:               v.GetInt64("SCHEDULER_RAND_SEED"),
			MaxBacktrackIterations: v.GetInt("SCHEDULER_MAX_BACKTRACK_ITERATIONS"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SCHEDULER_RAND_SEED", 1)
	v.SetDefault("SCHEDULER_MAX_BACKTRACK_ITERATIONS", 12)
}
