package onboarding

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jacobrobertsbaca/blockybird/internal/observability"
	"github.com/rs/zerolog"
)

var (
	ErrGateClosed     = errors.New("onboarding: gate closed")
	ErrAlreadyMounted = errors.New("onboarding: gate already mounted")
)

// GateConfig wires a gate to its collaborators.
type GateConfig struct {
	// ID names the gate in logs.
	ID string
	// Provider may be nil, which reads as "not installed".
	Provider     Provider
	NewInstaller InstallerFactory
	Animator     Animator
	Options      Options
	// RequestTimeout bounds each account request. Zero waits indefinitely.
	RequestTimeout time.Duration
	// OnAccountsChanged is called synchronously after the feed publishes.
	// It must not call back into the gate.
	OnAccountsChanged func(AccountsChanged)
	Logger            *zerolog.Logger
}

// Snapshot is a read-only copy of the gate.
type Snapshot struct {
	State    ConnectionState `json:"state"`
	Accounts []string        `json:"accounts"`
	Visible  bool            `json:"visible"`
	Epoch    uint64          `json:"epoch"`
	Content  Content         `json:"content"`
}

// Gate runs the onboarding machine against live capabilities.
type Gate struct {
	cfg  GateConfig
	log  zerolog.Logger
	feed *Feed

	mu      sync.Mutex
	m       Machine
	mounted bool
	closed  bool

	// effectsMu keeps effects from different events in event order.
	effectsMu sync.Mutex

	installerOnce sync.Once
	installer     Installer

	ctx    context.Context
	cancel context.CancelFunc
}

func NewGate(cfg GateConfig) *Gate {
	logger := observability.Component("onboarding")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	if cfg.ID != "" {
		logger = logger.With().Str("gate", cfg.ID).Logger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{
		cfg:    cfg,
		log:    logger,
		feed:   NewFeed(),
		m:      NewMachine(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Mount performs the first presence check and, when the provider is already
// installed, the startup account request.
func (g *Gate) Mount() (Snapshot, error) {
	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return Snapshot{}, ErrAlreadyMounted
	}
	g.mounted = true
	g.mu.Unlock()

	return g.dispatch(Mounted{Installed: g.providerInstalled()})
}

// Evaluate re-checks provider presence.
func (g *Gate) Evaluate() (Snapshot, error) {
	return g.dispatch(Evaluated{Installed: g.providerInstalled()})
}

// Activate presses the primary action.
func (g *Gate) Activate() (Snapshot, error) {
	return g.dispatch(Activated{Installed: g.providerInstalled()})
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return snapshotOf(g.m)
}

// Subscribe observes account-list replacements.
func (g *Gate) Subscribe() *Subscription {
	return g.feed.Subscribe()
}

// Close releases the installer, cancels in-flight requests and closes the
// feed. It is safe to call more than once.
func (g *Gate) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.cancel()
	g.feed.Close()

	var err error
	g.installerOnce.Do(func() {})
	if closer, ok := g.installer.(io.Closer); ok {
		err = closer.Close()
	}
	g.log.Debug().Msg("gate closed")
	return err
}

func (g *Gate) dispatch(ev Event) (Snapshot, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return Snapshot{}, ErrGateClosed
	}
	prev := g.m
	next, effects := Step(g.m, ev, g.cfg.Options)
	g.m = next
	snap := snapshotOf(next)
	g.effectsMu.Lock()
	g.mu.Unlock()
	defer g.effectsMu.Unlock()

	if prev.State != next.State {
		observability.RecordGateTransition(prev.State.String(), next.State.String())
		g.log.Info().
			Stringer("from", prev.State).
			Stringer("to", next.State).
			Uint64("epoch", next.Epoch).
			Msg("gate transition")
	}
	if prev.Visible && !next.Visible {
		g.log.Info().Msg("gate dismissed")
	}
	for _, eff := range effects {
		g.run(eff)
	}
	return snap, nil
}

func (g *Gate) run(eff Effect) {
	switch eff.Kind {
	case EffectStartInstall:
		if inst := g.installerHandle(); inst != nil {
			inst.StartInstallFlow()
		}
	case EffectStopInstall:
		if inst := g.installerHandle(); inst != nil {
			inst.StopInstallFlow()
		}
	case EffectPlaySuccess:
		if g.cfg.Animator != nil {
			g.cfg.Animator.PlaySuccess()
		}
	case EffectRequestAccounts:
		g.requestAccounts(eff.Epoch)
	case EffectPublishAccounts:
		g.publish(AccountsChanged{Accounts: eff.Accounts, Epoch: eff.Epoch})
	}
}

func (g *Gate) publish(ev AccountsChanged) {
	g.feed.Publish(ev)
	if g.cfg.OnAccountsChanged != nil {
		g.cfg.OnAccountsChanged(cloneChange(ev))
	}
}

// requestAccounts runs the provider call off the caller's goroutine. The
// result re-enters through dispatch tagged with the epoch it was issued in.
func (g *Gate) requestAccounts(epoch uint64) {
	provider := g.cfg.Provider
	if provider == nil {
		return
	}
	observability.RecordAccountRequest(observability.RequestIssued)
	g.log.Debug().Uint64("epoch", epoch).Msg("requesting accounts")

	go func() {
		ctx := g.ctx
		if g.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
			defer cancel()
		}

		accounts, err := provider.RequestAccounts(ctx)
		if g.ctx.Err() != nil {
			return
		}
		if err != nil {
			observability.RecordAccountRequest(observability.RequestFailed)
			g.log.Warn().Err(err).Uint64("epoch", epoch).Msg("account request failed")
			_, _ = g.dispatch(RequestFailed{Epoch: epoch, Err: err, Installed: g.providerInstalled()})
			return
		}
		if len(accounts) == 0 {
			observability.RecordAccountRequest(observability.RequestEmpty)
		} else {
			observability.RecordAccountRequest(observability.RequestResolved)
		}
		_, _ = g.dispatch(AccountsResolved{Epoch: epoch, Accounts: accounts, Installed: g.providerInstalled()})
	}()
}

func (g *Gate) installerHandle() Installer {
	g.installerOnce.Do(func() {
		if g.cfg.NewInstaller != nil {
			g.installer = g.cfg.NewInstaller()
		}
	})
	return g.installer
}

func (g *Gate) providerInstalled() bool {
	return g.cfg.Provider != nil && g.cfg.Provider.IsInstalled()
}

func snapshotOf(m Machine) Snapshot {
	return Snapshot{
		State:    m.State,
		Accounts: copyAccounts(m.Accounts),
		Visible:  m.Visible,
		Epoch:    m.Epoch,
		Content:  ContentFor(m.State),
	}
}
