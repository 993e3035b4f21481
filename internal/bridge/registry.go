package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jacobrobertsbaca/blockybird/internal/app"
	"github.com/jacobrobertsbaca/blockybird/internal/observability"
	"github.com/jacobrobertsbaca/blockybird/internal/onboarding"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

var (
	ErrSessionNotFound = errors.New("bridge: session not found")
	ErrRegistryFull    = errors.New("bridge: session limit reached")
)

// RegistryConfig configures per-session gates.
type RegistryConfig struct {
	// SessionTTL is the idle time after which a session is dropped.
	SessionTTL     time.Duration
	MaxSessions    uint64
	ExperienceURL  string
	Options        onboarding.Options
	RequestTimeout time.Duration
}

func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		SessionTTL:    30 * time.Minute,
		MaxSessions:   10000,
		ExperienceURL: app.DefaultExperienceURL,
	}
}

// Entry binds a browser session to its gate and root container.
type Entry struct {
	Session *Session
	Root    *app.Root
}

func (e *Entry) Gate() *onboarding.Gate {
	return e.Root.Gate()
}

func (e *Entry) close() {
	_ = e.Root.Close()
	_ = e.Session.Close()
}

// Registry owns live sessions. Lookups refresh a session's idle timer.
type Registry struct {
	cfg   RegistryConfig
	cache *ttlcache.Cache[string, *Entry]
	live  atomic.Int64
	log   zerolog.Logger
}

func NewRegistry(cfg RegistryConfig) *Registry {
	defaults := DefaultRegistryConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if strings.TrimSpace(cfg.ExperienceURL) == "" {
		cfg.ExperienceURL = defaults.ExperienceURL
	}
	opts := []ttlcache.Option[string, *Entry]{
		ttlcache.WithTTL[string, *Entry](cfg.SessionTTL),
	}
	if cfg.MaxSessions > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *Entry](cfg.MaxSessions))
	}

	r := &Registry{
		cfg:   cfg,
		cache: ttlcache.New[string, *Entry](opts...),
		log:   observability.Component("bridge"),
	}
	// Eviction runs under the cache lock; it must not touch the cache.
	r.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Entry]) {
		item.Value().close()
		observability.SetBridgeSessions(int(r.live.Add(-1)))
		r.log.Info().
			Str("session", item.Key()).
			Str("reason", evictionReason(reason)).
			Msg("session dropped")
	})
	return r
}

// Run drives idle expiry until ctx is done, then drops every session.
func (r *Registry) Run(ctx context.Context) {
	go r.cache.Start()
	<-ctx.Done()
	r.cache.Stop()
	r.cache.DeleteAll()
}

// Create starts a session with its own gate and mounts it.
func (r *Registry) Create(installed bool) (*Entry, error) {
	if r.cfg.MaxSessions > 0 && uint64(r.cache.Len()) >= r.cfg.MaxSessions {
		return nil, ErrRegistryFull
	}
	id := uuid.NewString()
	sess := NewSession(id, installed)
	logger := observability.Component("onboarding").With().Str("session", id).Logger()
	gate := onboarding.NewGate(onboarding.GateConfig{
		ID:       id,
		Provider: sess,
		NewInstaller: func() onboarding.Installer {
			return sess
		},
		Animator:       sess,
		Options:        r.cfg.Options,
		RequestTimeout: r.cfg.RequestTimeout,
		Logger:         &logger,
	})
	root, err := app.NewRoot(app.RootConfig{Gate: gate, ExperienceURL: r.cfg.ExperienceURL})
	if err != nil {
		_ = gate.Close()
		return nil, err
	}
	entry := &Entry{Session: sess, Root: root}
	if err := root.Start(); err != nil {
		entry.close()
		return nil, fmt.Errorf("bridge: start session %s: %w", id, err)
	}

	r.cache.Set(id, entry, ttlcache.DefaultTTL)
	observability.SetBridgeSessions(int(r.live.Add(1)))
	r.log.Info().Str("session", id).Bool("installed", installed).Msg("session created")
	return entry, nil
}

func (r *Registry) Get(id string) (*Entry, error) {
	item := r.cache.Get(strings.TrimSpace(id))
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return item.Value(), nil
}

func (r *Registry) Remove(id string) error {
	key := strings.TrimSpace(id)
	if !r.cache.Has(key) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.cache.Delete(key)
	return nil
}

// Sweep drops expired sessions now instead of waiting for Run's timer.
func (r *Registry) Sweep() {
	r.cache.DeleteExpired()
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// List returns session info ordered by creation time.
func (r *Registry) List() []SessionInfo {
	items := r.cache.Items()
	out := make([]SessionInfo, 0, len(items))
	for _, item := range items {
		out = append(out, item.Value().Session.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func evictionReason(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
