package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the server's runtime configuration.
type Config struct {
	Name              string
	Addr              string
	CorsOrigins       []string
	TrustedProxies    []string
	ExperienceURL     string
	SessionTTL        time.Duration
	MaxSessions       uint64
	RequestTimeout    time.Duration
	RecoverOnFailure  bool
	RateLimit         float64
	RateBurst         int
	AdminToken        string
	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration
}

func Default() Config {
	return Config{
		Name:              "blockybird",
		Addr:              ":8080",
		CorsOrigins:       []string{"http://localhost:3000"},
		TrustedProxies:    []string{"127.0.0.1", "::1"},
		ExperienceURL:     "https://playcanv.as/e/p/yEW2U6hC/",
		SessionTTL:        30 * time.Minute,
		MaxSessions:       10000,
		RequestTimeout:    0,
		RecoverOnFailure:  false,
		RateLimit:         20,
		RateBurst:         40,
		HeartbeatInterval: time.Minute,
		ShutdownTimeout:   5 * time.Second,
	}
}

// fileConfig mirrors the TOML layout. Durations are Go duration strings.
type fileConfig struct {
	Name              string   `toml:"name"`
	Addr              string   `toml:"addr"`
	CorsOrigins       []string `toml:"cors_origins"`
	TrustedProxies    []string `toml:"trusted_proxies"`
	ExperienceURL     string   `toml:"experience_url"`
	SessionTTL        string   `toml:"session_ttl"`
	MaxSessions       uint64   `toml:"max_sessions"`
	RequestTimeout    string   `toml:"request_timeout"`
	RecoverOnFailure  bool     `toml:"recover_on_failure"`
	RateLimit         float64  `toml:"rate_limit"`
	RateBurst         int      `toml:"rate_burst"`
	AdminToken        string   `toml:"admin_token"`
	HeartbeatInterval string   `toml:"heartbeat_interval"`
	ShutdownTimeout   string   `toml:"shutdown_timeout"`
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("trusted_proxies") {
		cfg.TrustedProxies = normalizeList(raw.TrustedProxies)
	}
	if meta.IsDefined("experience_url") {
		cfg.ExperienceURL = strings.TrimSpace(raw.ExperienceURL)
	}
	if meta.IsDefined("max_sessions") {
		cfg.MaxSessions = raw.MaxSessions
	}
	if meta.IsDefined("recover_on_failure") {
		cfg.RecoverOnFailure = raw.RecoverOnFailure
	}
	if meta.IsDefined("rate_limit") {
		cfg.RateLimit = raw.RateLimit
	}
	if meta.IsDefined("rate_burst") {
		cfg.RateBurst = raw.RateBurst
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"session_ttl", raw.SessionTTL, &cfg.SessionTTL},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"heartbeat_interval", raw.HeartbeatInterval, &cfg.HeartbeatInterval},
		{"shutdown_timeout", raw.ShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// EnvPrefix namespaces every environment override.
const EnvPrefix = "BLOCKYBIRD_"

type envOverrides struct {
	Name             *string        `env:"NAME"`
	Addr             *string        `env:"ADDR"`
	CorsOrigins      []string       `env:"CORS_ORIGINS" envSeparator:","`
	ExperienceURL    *string        `env:"EXPERIENCE_URL"`
	SessionTTL       *time.Duration `env:"SESSION_TTL"`
	RequestTimeout   *time.Duration `env:"REQUEST_TIMEOUT"`
	RecoverOnFailure *bool          `env:"RECOVER_ON_FAILURE"`
	AdminToken       *string        `env:"ADMIN_TOKEN"`
}

// ApplyEnv overlays BLOCKYBIRD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Name != nil {
		cfg.Name = strings.TrimSpace(*o.Name)
	}
	if o.Addr != nil {
		cfg.Addr = strings.TrimSpace(*o.Addr)
	}
	if o.CorsOrigins != nil {
		cfg.CorsOrigins = normalizeList(o.CorsOrigins)
	}
	if o.ExperienceURL != nil {
		cfg.ExperienceURL = strings.TrimSpace(*o.ExperienceURL)
	}
	if o.SessionTTL != nil {
		cfg.SessionTTL = *o.SessionTTL
	}
	if o.RequestTimeout != nil {
		cfg.RequestTimeout = *o.RequestTimeout
	}
	if o.RecoverOnFailure != nil {
		cfg.RecoverOnFailure = *o.RecoverOnFailure
	}
	if o.AdminToken != nil {
		cfg.AdminToken = strings.TrimSpace(*o.AdminToken)
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: missing addr", ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.ExperienceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: experience_url must be an absolute http(s) url", ErrInvalidConfig)
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("%w: session_ttl must be positive", ErrInvalidConfig)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst must be at least 1", ErrInvalidConfig)
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalidConfig)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}
	for i, origin := range cfg.CorsOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: cors_origins[%d] %q", ErrInvalidConfig, i, origin)
		}
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
