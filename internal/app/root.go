// Package app composes the onboarding gate with the embedded experience.
//
// Root mirrors the gate's account list; the gate stays the source of truth.
package app

import (
	"errors"
	"sync"

	"github.com/jacobrobertsbaca/blockybird/internal/observability"
	"github.com/jacobrobertsbaca/blockybird/internal/onboarding"
	"github.com/jacobrobertsbaca/blockybird/internal/wallet"
	"github.com/rs/zerolog"
)

var (
	ErrGateRequired   = errors.New("app: gate is required")
	ErrAlreadyStarted = errors.New("app: root already started")
)

// DefaultExperienceURL is the embedded game.
const DefaultExperienceURL = "https://playcanv.as/e/p/yEW2U6hC/"

// Experience is the opaque embedded surface. It receives no account data.
type Experience struct {
	URL     string `json:"url"`
	Visible bool   `json:"visible"`
}

// View is everything a page needs to render the root.
type View struct {
	Gate       onboarding.Snapshot `json:"gate"`
	Accounts   []string            `json:"accounts"`
	Indicators []wallet.Indicator  `json:"indicators"`
	Experience Experience          `json:"experience"`
}

type RootConfig struct {
	Gate          *onboarding.Gate
	ExperienceURL string
	Logger        *zerolog.Logger
}

type Root struct {
	gate       *onboarding.Gate
	experience Experience
	log        zerolog.Logger

	mu       sync.RWMutex
	accounts []string
	started  bool

	sub  *onboarding.Subscription
	done chan struct{}
}

func NewRoot(cfg RootConfig) (*Root, error) {
	if cfg.Gate == nil {
		return nil, ErrGateRequired
	}
	url := cfg.ExperienceURL
	if url == "" {
		url = DefaultExperienceURL
	}
	logger := observability.Component("app")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Root{
		gate:       cfg.Gate,
		experience: Experience{URL: url, Visible: true},
		log:        logger,
		accounts:   []string{},
		done:       make(chan struct{}),
	}, nil
}

// Start subscribes to account changes and mounts the gate.
func (r *Root) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.sub = r.gate.Subscribe()
	r.mu.Unlock()

	go r.mirror(r.sub)

	if _, err := r.gate.Mount(); err != nil {
		return err
	}
	return nil
}

func (r *Root) mirror(sub *onboarding.Subscription) {
	defer close(r.done)
	for ev := range sub.C() {
		r.mu.Lock()
		r.accounts = ev.Accounts
		r.mu.Unlock()
		r.log.Debug().Int("accounts", len(ev.Accounts)).Uint64("epoch", ev.Epoch).Msg("accounts mirrored")
	}
}

// Accounts returns a copy of the mirrored account list.
func (r *Root) Accounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.accounts))
	copy(out, r.accounts)
	return out
}

func (r *Root) Gate() *onboarding.Gate {
	return r.gate
}

func (r *Root) View() View {
	accounts := r.Accounts()
	return View{
		Gate:       r.gate.Snapshot(),
		Accounts:   accounts,
		Indicators: wallet.Indicators(accounts),
		Experience: r.experience,
	}
}

// Close closes the gate and waits for the mirror to drain.
func (r *Root) Close() error {
	err := r.gate.Close()
	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()
	if started {
		<-r.done
	}
	return err
}
