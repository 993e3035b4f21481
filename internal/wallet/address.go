// Package wallet formats and validates Ethereum account addresses.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("wallet: invalid address")

// Normalize returns the EIP-55 checksummed form of a hex address.
func Normalize(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return common.HexToAddress(addr).Hex(), nil
}

// NormalizeAll normalizes every address, keeping order and dropping repeats.
// The result is never nil.
func NormalizeAll(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		addr, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("account[%d]: %w", i, err)
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// Indicator is the compact label shown for a connected account.
type Indicator struct {
	Address string `json:"address"`
	Short   string `json:"short"`
	Valid   bool   `json:"valid"`
}

// IndicatorFor builds the display label for addr. Addresses that are not
// valid hex are shown as-is, shortened.
func IndicatorFor(addr string) Indicator {
	trimmed := strings.TrimSpace(addr)
	if normalized, err := Normalize(trimmed); err == nil {
		return Indicator{Address: normalized, Short: shorten(normalized), Valid: true}
	}
	return Indicator{Address: trimmed, Short: shorten(trimmed)}
}

// Indicators maps IndicatorFor over accounts.
func Indicators(accounts []string) []Indicator {
	out := make([]Indicator, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, IndicatorFor(a))
	}
	return out
}

func shorten(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
