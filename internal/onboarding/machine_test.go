package onboarding

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, eff := range effects {
		out = append(out, eff.Kind)
	}
	return out
}

func checkInvariants(t *testing.T, m Machine, installed bool, step int) {
	t.Helper()
	connected := len(m.Accounts) > 0 && installed
	if (m.State == Connected) != connected {
		t.Fatalf("step %d: state=%s accounts=%v installed=%v breaks connected invariant", step, m.State, m.Accounts, installed)
	}
	if !installed && m.State != NeedsInstall {
		t.Fatalf("step %d: provider absent but state=%s", step, m.State)
	}
}

func TestStepMountWithoutProviderStaysNeedsInstall(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: false}, Options{})
	if m.State != NeedsInstall {
		t.Fatalf("unexpected state: %s", m.State)
	}
	if got := kinds(effects); !reflect.DeepEqual(got, []EffectKind{EffectPublishAccounts}) {
		t.Fatalf("unexpected effects: %v", got)
	}
	if len(effects[0].Accounts) != 0 {
		t.Fatalf("expected empty initial publish, got %v", effects[0].Accounts)
	}
}

func TestStepMountWithProviderRequestsOnce(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	if m.State != Connecting {
		t.Fatalf("unexpected state: %s", m.State)
	}
	if len(effects) != 1 || effects[0].Kind != EffectRequestAccounts || effects[0].Epoch != m.Epoch {
		t.Fatalf("unexpected effects: %+v (epoch=%d)", effects, m.Epoch)
	}
}

func TestStepInstallActionKeepsState(t *testing.T) {
	m, _ := Step(NewMachine(), Mounted{Installed: false}, Options{})
	m, effects := Step(m, Activated{Installed: false}, Options{})
	if m.State != NeedsInstall {
		t.Fatalf("unexpected state: %s", m.State)
	}
	if got := kinds(effects); !reflect.DeepEqual(got, []EffectKind{EffectStartInstall}) {
		t.Fatalf("unexpected effects: %v", got)
	}
}

func TestStepResolveNonEmptyConnects(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	epoch := effects[0].Epoch

	m, effects = Step(m, AccountsResolved{Epoch: epoch, Accounts: []string{"0xABC"}, Installed: true}, Options{})
	if m.State != Connected {
		t.Fatalf("unexpected state: %s", m.State)
	}
	want := []EffectKind{EffectStopInstall, EffectPlaySuccess, EffectPublishAccounts}
	if got := kinds(effects); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected effects: %v", got)
	}
	if !reflect.DeepEqual(effects[2].Accounts, []string{"0xABC"}) {
		t.Fatalf("unexpected published accounts: %v", effects[2].Accounts)
	}
}

func TestStepResolveEmptyReturnsToNeedsConnect(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	m, effects = Step(m, AccountsResolved{Epoch: effects[0].Epoch, Accounts: nil, Installed: true}, Options{})
	if m.State != NeedsConnect {
		t.Fatalf("unexpected state: %s", m.State)
	}
	if got := kinds(effects); !reflect.DeepEqual(got, []EffectKind{EffectPublishAccounts}) {
		t.Fatalf("unexpected effects: %v", got)
	}
	if effects[0].Accounts == nil || len(effects[0].Accounts) != 0 {
		t.Fatalf("expected non-nil empty list, got %#v", effects[0].Accounts)
	}

	m, effects = Step(m, Activated{Installed: true}, Options{})
	if m.State != Connecting || len(effects) != 1 || effects[0].Kind != EffectRequestAccounts {
		t.Fatalf("expected retry request, state=%s effects=%v", m.State, kinds(effects))
	}
}

func TestStepConnectingIgnoresActivation(t *testing.T) {
	m, _ := Step(NewMachine(), Mounted{Installed: true}, Options{})
	before := m
	m, effects := Step(m, Activated{Installed: true}, Options{})
	if len(effects) != 0 {
		t.Fatalf("expected no effects, got %v", kinds(effects))
	}
	if m.State != Connecting || m.Epoch != before.Epoch {
		t.Fatalf("activation while connecting changed machine: %+v", m)
	}
}

func TestStepDismissIsIdempotent(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	m, _ = Step(m, AccountsResolved{Epoch: effects[0].Epoch, Accounts: []string{"0xABC"}, Installed: true}, Options{})

	for i := 0; i < 5; i++ {
		var effs []Effect
		m, effs = Step(m, Activated{Installed: true}, Options{})
		if len(effs) != 0 {
			t.Fatalf("dismiss %d produced effects: %v", i, kinds(effs))
		}
		if m.Visible {
			t.Fatalf("dismiss %d left panel visible", i)
		}
		if m.State != Connected || !reflect.DeepEqual(m.Accounts, []string{"0xABC"}) {
			t.Fatalf("dismiss %d changed state: %+v", i, m)
		}
	}
}

func TestStepAbsenceOverridesConnected(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	m, _ = Step(m, AccountsResolved{Epoch: effects[0].Epoch, Accounts: []string{"0xABC"}, Installed: true}, Options{})

	m, effects = Step(m, Evaluated{Installed: false}, Options{})
	if m.State != NeedsInstall {
		t.Fatalf("expected needs_install, got %s", m.State)
	}
	if len(effects) != 0 {
		t.Fatalf("absence should have no effects, got %v", kinds(effects))
	}

	m, _ = Step(m, Evaluated{Installed: true}, Options{})
	if m.State != Connected {
		t.Fatalf("expected reconnect from retained accounts, got %s", m.State)
	}
}

func TestStepActivationAgainstStalePanelIsDropped(t *testing.T) {
	m, _ := Step(NewMachine(), Mounted{Installed: false}, Options{})
	// Provider appeared since the "install" panel was rendered.
	m, effects := Step(m, Activated{Installed: true}, Options{})
	if m.State != NeedsConnect {
		t.Fatalf("unexpected state: %s", m.State)
	}
	if len(effects) != 0 {
		t.Fatalf("stale activation produced effects: %v", kinds(effects))
	}
}

func TestStepStaleResultIsDiscarded(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	stale := effects[0].Epoch

	m, _ = Step(m, Evaluated{Installed: false}, Options{})
	m, _ = Step(m, Evaluated{Installed: true}, Options{})
	m, effects = Step(m, Activated{Installed: true}, Options{})
	if m.State != Connecting || effects[0].Epoch == stale {
		t.Fatalf("expected fresh request, state=%s effects=%+v", m.State, effects)
	}

	m, effects = Step(m, AccountsResolved{Epoch: stale, Accounts: []string{"0xOLD"}, Installed: true}, Options{})
	if m.State != Connecting || len(m.Accounts) != 0 || len(effects) != 0 {
		t.Fatalf("stale result applied: %+v effects=%v", m, kinds(effects))
	}
}

func TestStepFailureKeepsConnectingByDefault(t *testing.T) {
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	m, _ = Step(m, RequestFailed{Epoch: effects[0].Epoch, Err: errors.New("user rejected"), Installed: true}, Options{})
	if m.State != Connecting {
		t.Fatalf("expected connecting to persist, got %s", m.State)
	}
	if c := ContentFor(m.State); c.ActionEnabled {
		t.Fatalf("expected primary action disabled while stuck connecting")
	}
}

func TestStepFailureRecoversWhenEnabled(t *testing.T) {
	opts := Options{RecoverOnFailure: true}
	m, effects := Step(NewMachine(), Mounted{Installed: true}, opts)
	m, effects = Step(m, RequestFailed{Epoch: effects[0].Epoch, Err: errors.New("timeout"), Installed: true}, opts)
	if m.State != NeedsConnect {
		t.Fatalf("expected needs_connect, got %s", m.State)
	}
	if len(effects) != 0 {
		t.Fatalf("failure should not publish, got %v", kinds(effects))
	}
}

func TestStepDoesNotAliasAccounts(t *testing.T) {
	accounts := []string{"0xABC"}
	m, effects := Step(NewMachine(), Mounted{Installed: true}, Options{})
	m, effects = Step(m, AccountsResolved{Epoch: effects[0].Epoch, Accounts: accounts, Installed: true}, Options{})
	accounts[0] = "0xMUTATED"
	effects[2].Accounts[0] = "0xALSO"
	if m.Accounts[0] != "0xABC" {
		t.Fatalf("machine aliases caller slices: %v", m.Accounts)
	}
}

func TestStepPropertyPresenceAndConnectedInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	lists := [][]string{nil, {}, {"0xABC"}, {"0xABC", "0xDEF"}}

	for run := 0; run < 200; run++ {
		m := NewMachine()
		installed := rng.Intn(2) == 0
		m, _ = Step(m, Mounted{Installed: installed}, Options{})
		checkInvariants(t, m, installed, 0)
		var issued []uint64
		everConnected := false
		if m.State == Connecting {
			issued = append(issued, m.Epoch)
		}

		for step := 1; step < 60; step++ {
			var effects []Effect
			switch rng.Intn(5) {
			case 0:
				installed = !installed
				m, effects = Step(m, Evaluated{Installed: installed}, Options{})
			case 1:
				m, effects = Step(m, Activated{Installed: installed}, Options{})
			case 2, 3:
				epoch := m.Epoch
				if len(issued) > 0 && rng.Intn(3) == 0 {
					epoch = issued[rng.Intn(len(issued))]
				}
				list := lists[rng.Intn(len(lists))]
				m, effects = Step(m, AccountsResolved{Epoch: epoch, Accounts: list, Installed: installed}, Options{})
			case 4:
				m, effects = Step(m, RequestFailed{Epoch: m.Epoch, Err: errors.New("x"), Installed: installed}, Options{RecoverOnFailure: rng.Intn(2) == 0})
			}
			for _, eff := range effects {
				if eff.Kind == EffectRequestAccounts {
					issued = append(issued, eff.Epoch)
				}
			}
			if m.State == Connected {
				everConnected = true
			}
			if !m.Visible && !everConnected {
				t.Fatalf("run %d step %d: hidden before ever connecting", run, step)
			}
			checkInvariants(t, m, installed, step)
		}
	}
}
