package onboarding

// Machine is the gate's complete state. Values are copied in and out of Step;
// Accounts is never shared with the caller.
type Machine struct {
	State    ConnectionState
	Accounts []string
	Visible  bool
	// Epoch identifies the current request context. It advances when a request
	// is issued and when provider absence is detected.
	Epoch uint64
}

// NewMachine returns the mount-time state: NeedsInstall, no accounts, visible.
func NewMachine() Machine {
	return Machine{
		State:    NeedsInstall,
		Accounts: []string{},
		Visible:  true,
	}
}

// Options tunes the open-ended parts of the flow.
type Options struct {
	// RecoverOnFailure routes a failed account request back to NeedsConnect.
	// When false a failed request leaves the gate in Connecting.
	RecoverOnFailure bool
}

// Event is an input to Step. Every event carries the provider presence
// observed when it was produced.
type Event interface {
	providerInstalled() bool
}

// Mounted is delivered once when the gate is first shown.
type Mounted struct{ Installed bool }

// Evaluated is a plain presence check.
type Evaluated struct{ Installed bool }

// Activated is a primary-action press.
type Activated struct{ Installed bool }

// AccountsResolved carries the provider's answer to the request issued in Epoch.
type AccountsResolved struct {
	Epoch     uint64
	Accounts  []string
	Installed bool
}

// RequestFailed reports that the request issued in Epoch errored or timed out.
type RequestFailed struct {
	Epoch     uint64
	Err       error
	Installed bool
}

func (e Mounted) providerInstalled() bool          { return e.Installed }
func (e Evaluated) providerInstalled() bool        { return e.Installed }
func (e Activated) providerInstalled() bool        { return e.Installed }
func (e AccountsResolved) providerInstalled() bool { return e.Installed }
func (e RequestFailed) providerInstalled() bool    { return e.Installed }

type EffectKind int

const (
	EffectStartInstall EffectKind = iota + 1
	EffectStopInstall
	EffectRequestAccounts
	EffectPlaySuccess
	EffectPublishAccounts
)

func (k EffectKind) String() string {
	switch k {
	case EffectStartInstall:
		return "start_install"
	case EffectStopInstall:
		return "stop_install"
	case EffectRequestAccounts:
		return "request_accounts"
	case EffectPlaySuccess:
		return "play_success"
	case EffectPublishAccounts:
		return "publish_accounts"
	default:
		return "unknown"
	}
}

// Effect is a side effect Step asks the caller to perform, in order.
type Effect struct {
	Kind     EffectKind
	Epoch    uint64
	Accounts []string
}

// Step applies ev to m. Presence is evaluated first for every event so that
// provider absence always wins.
func Step(m Machine, ev Event, opts Options) (Machine, []Effect) {
	next := m.clone()
	before := next.State
	next = evaluate(next, ev.providerInstalled())

	switch e := ev.(type) {
	case Mounted:
		if next.State == NeedsConnect {
			return request(next)
		}
		// Observers start from the gate's initial list.
		return next, []Effect{publish(next)}

	case Evaluated:
		return next, nil

	case Activated:
		// The press was made against the panel for `before`; if evaluation
		// moved the state, the panel the user saw is gone.
		if next.State != before {
			return next, nil
		}
		return activate(next)

	case AccountsResolved:
		if e.Epoch != next.Epoch || next.State != Connecting {
			return next, nil
		}
		next.Accounts = copyAccounts(e.Accounts)
		if len(next.Accounts) == 0 {
			next.State = NeedsConnect
			return next, []Effect{publish(next)}
		}
		next.State = Connected
		return next, []Effect{
			{Kind: EffectStopInstall},
			{Kind: EffectPlaySuccess},
			publish(next),
		}

	case RequestFailed:
		if e.Epoch != next.Epoch || next.State != Connecting {
			return next, nil
		}
		if opts.RecoverOnFailure {
			next.State = NeedsConnect
		}
		return next, nil

	default:
		return next, nil
	}
}

func evaluate(m Machine, installed bool) Machine {
	if !installed {
		if m.State != NeedsInstall {
			m.Epoch++
		}
		m.State = NeedsInstall
		return m
	}
	switch m.State {
	case NeedsInstall, NeedsConnect, Connected:
		if len(m.Accounts) > 0 {
			m.State = Connected
		} else {
			m.State = NeedsConnect
		}
	}
	return m
}

func activate(m Machine) (Machine, []Effect) {
	switch m.State {
	case NeedsInstall:
		return m, []Effect{{Kind: EffectStartInstall}}
	case NeedsConnect:
		return request(m)
	case Connected:
		m.Visible = false
		return m, nil
	default:
		return m, nil
	}
}

func request(m Machine) (Machine, []Effect) {
	m.Epoch++
	m.State = Connecting
	return m, []Effect{{Kind: EffectRequestAccounts, Epoch: m.Epoch}}
}

func publish(m Machine) Effect {
	return Effect{Kind: EffectPublishAccounts, Epoch: m.Epoch, Accounts: copyAccounts(m.Accounts)}
}

func (m Machine) clone() Machine {
	out := m
	out.Accounts = copyAccounts(m.Accounts)
	return out
}

func copyAccounts(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
