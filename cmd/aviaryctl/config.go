package main

import (
	"encoding/json"
	"fmt"
	"os"

	"aviary/pkg/aviary"
)

const defaultGenerations = 5

// runConfig collects everything the run command needs. JSON config
// files use the same keys as the flags with dashes swapped for
// underscores.
type runConfig struct {
	Drones      int
	Population  int
	Generations int
	Duration    float64
	Seed        int64
	Profile     string
	SaveBest    bool
	Store       string
	DBPath      string
}

func loadRunConfigFromFile(path string) (runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return runConfig{}, err
	}

	var cfg runConfig
	if v, ok := asInt(raw["drones"]); ok {
		cfg.Drones = v
	}
	if v, ok := asInt(raw["population"]); ok {
		cfg.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		cfg.Generations = v
	}
	if v, ok := asFloat64(raw["duration"]); ok {
		cfg.Duration = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		cfg.Seed = v
	}
	if v, ok := asString(raw["profile"]); ok {
		cfg.Profile = v
	}
	if v, ok := asBool(raw["save_best"]); ok {
		cfg.SaveBest = v
	}
	if v, ok := asString(raw["store"]); ok {
		cfg.Store = v
	}
	if v, ok := asString(raw["db_path"]); ok {
		cfg.DBPath = v
	}
	return cfg, nil
}

func loadOrDefaultRunConfig(configPath string) (runConfig, error) {
	if configPath == "" {
		return runConfig{}, nil
	}
	cfg, err := loadRunConfigFromFile(configPath)
	if err != nil {
		return runConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// overrideRunConfigFromFlags applies explicitly set flags on top of a
// file-loaded config, then fills the gaps neither source covered.
func overrideRunConfigFromFlags(cfg *runConfig, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "drones":
			cfg.Drones = v.(int)
		case "population":
			cfg.Population = v.(int)
		case "generations":
			cfg.Generations = v.(int)
		case "duration":
			cfg.Duration = v.(float64)
		case "seed":
			cfg.Seed = v.(int64)
		case "profile":
			cfg.Profile = v.(string)
		case "save-best":
			cfg.SaveBest = v.(bool)
		case "store":
			cfg.Store = v.(string)
		case "db-path":
			cfg.DBPath = v.(string)
		}
	}
	if cfg.Generations == 0 {
		cfg.Generations = defaultGenerations
	}
	if cfg.Duration == 0 {
		cfg.Duration = aviary.DefaultDuration
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "gallery.db"
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
