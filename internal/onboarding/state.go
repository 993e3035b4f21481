package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownState = errors.New("onboarding: unknown connection state")

// ConnectionState is the gate's position in the onboarding flow.
type ConnectionState int

const (
	NeedsInstall ConnectionState = iota
	NeedsConnect
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case NeedsInstall:
		return "needs_install"
	case NeedsConnect:
		return "needs_connect"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnectionState) UnmarshalText(text []byte) error {
	parsed, err := ParseConnectionState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseConnectionState accepts the String form of a state.
func ParseConnectionState(raw string) (ConnectionState, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "needs_install":
		return NeedsInstall, nil
	case "needs_connect":
		return NeedsConnect, nil
	case "connecting":
		return Connecting, nil
	case "connected":
		return Connected, nil
	default:
		return NeedsInstall, fmt.Errorf("%w: %q", ErrUnknownState, raw)
	}
}
