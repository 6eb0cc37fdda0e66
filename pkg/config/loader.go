// Package config loads typed configuration structs from environment
// variables, with optional .env bootstrap for local development.
//
// Define a struct with env tags and load it once at startup:
//
//	type AppConfig struct {
//		SpacingPx  int `env:"DISPATCH_SPACING_PX" envDefault:"12"`
//		MaxRetries int `env:"DISPATCH_MAX_RETRIES" envDefault:"3"`
//	}
//
//	var cfg AppConfig
//	config.MustLoad(&cfg)
package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvOnce sync.Once

// LoadEnv loads one or more .env files into the process environment.
// Without arguments it loads ".env" from the working directory; a missing
// default file is not an error, a missing named file is.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses environment variables into the provided struct based on its
// env tags. The default .env file is loaded once per process before the
// first parse.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvOnce.Do(func() {
		// The .env file is optional; real environments set variables directly.
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Use for configuration
// the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
