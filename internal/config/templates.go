package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Render encodes cfg in the file layout Load reads.
func Render(cfg Config) ([]byte, error) {
	raw := fileConfig{
		Name:              cfg.Name,
		Addr:              cfg.Addr,
		CorsOrigins:       cfg.CorsOrigins,
		TrustedProxies:    cfg.TrustedProxies,
		ExperienceURL:     cfg.ExperienceURL,
		SessionTTL:        cfg.SessionTTL.String(),
		MaxSessions:       cfg.MaxSessions,
		RequestTimeout:    cfg.RequestTimeout.String(),
		RecoverOnFailure:  cfg.RecoverOnFailure,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
		AdminToken:        cfg.AdminToken,
		HeartbeatInterval: cfg.HeartbeatInterval.String(),
		ShutdownTimeout:   cfg.ShutdownTimeout.String(),
	}
	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return out, nil
}

// WriteTemplate writes the default configuration to path.
func WriteTemplate(path string, overwrite bool) error {
	data, err := Render(Default())
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
