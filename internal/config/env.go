package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the daemon's process configuration. An empty Store selects the
// build's default gallery backend; an empty Profile selects the built-in
// engine defaults.
type Env struct {
	Addr          string        `env:"AVIARY_ADDR"           envDefault:":8080"`
	Store         string        `env:"AVIARY_STORE"`
	DBPath        string        `env:"AVIARY_DB_PATH"        envDefault:"gallery.db"`
	Profile       string        `env:"AVIARY_PROFILE"`
	SessionTTL    time.Duration `env:"AVIARY_SESSION_TTL"    envDefault:"60m"`
	SweepInterval time.Duration `env:"AVIARY_SWEEP_INTERVAL" envDefault:"1m"`
}

// ParseEnv reads the AVIARY_* environment variables.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
