package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/jacobrobertsbaca/blockybird/internal/config"
)

// resolveConfig loads path, or the default path when it exists, then applies
// environment overrides. An explicit path must exist.
func resolveConfig(path string) (config.Config, error) {
	cfg := config.Default()
	switch {
	case path != "":
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	default:
		if _, err := os.Stat(defaultConfigPath); err == nil {
			loaded, err := config.Load(defaultConfigPath)
			if err != nil {
				return config.Config{}, err
			}
			cfg = loaded
		} else if !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}

	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
