package onboarding

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type accountResult struct {
	accounts []string
	err      error
}

type fakeProvider struct {
	installed atomic.Bool
	calls     atomic.Int32
	results   chan accountResult
}

func newFakeProvider(installed bool) *fakeProvider {
	p := &fakeProvider{results: make(chan accountResult, 4)}
	p.installed.Store(installed)
	return p
}

func (p *fakeProvider) IsInstalled() bool {
	return p.installed.Load()
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.calls.Add(1)
	select {
	case r := <-p.results:
		return r.accounts, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeInstaller struct {
	starts atomic.Int32
	stops  atomic.Int32
	closed atomic.Bool
}

func (i *fakeInstaller) StartInstallFlow() { i.starts.Add(1) }
func (i *fakeInstaller) StopInstallFlow()  { i.stops.Add(1) }
func (i *fakeInstaller) Close() error {
	i.closed.Store(true)
	return nil
}

type fakeAnimator struct {
	plays atomic.Int32
}

func (a *fakeAnimator) PlaySuccess() { a.plays.Add(1) }

type recorder struct {
	mu      sync.Mutex
	changes [][]string
}

func (r *recorder) record(ev AccountsChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev.Accounts)
}

func (r *recorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.changes))
	copy(out, r.changes)
	return out
}

type harness struct {
	gate      *Gate
	provider  *fakeProvider
	installer *fakeInstaller
	builds    atomic.Int32
	animator  *fakeAnimator
	rec       *recorder
}

func newHarness(t *testing.T, installed bool, opts Options, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		provider:  newFakeProvider(installed),
		installer: &fakeInstaller{},
		animator:  &fakeAnimator{},
		rec:       &recorder{},
	}
	h.gate = NewGate(GateConfig{
		ID:       t.Name(),
		Provider: h.provider,
		NewInstaller: func() Installer {
			h.builds.Add(1)
			return h.installer
		},
		Animator:          h.animator,
		Options:           opts,
		RequestTimeout:    timeout,
		OnAccountsChanged: h.rec.record,
	})
	t.Cleanup(func() { _ = h.gate.Close() })
	return h
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func waitForState(t *testing.T, g *Gate, want ConnectionState) Snapshot {
	t.Helper()
	var snap Snapshot
	waitFor(t, "state "+want.String(), func() bool {
		snap = g.Snapshot()
		return snap.State == want
	})
	return snap
}
