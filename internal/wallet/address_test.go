package wallet

import (
	"errors"
	"reflect"
	"testing"
)

const (
	lowerAddr    = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	checksumAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func TestNormalizeChecksums(t *testing.T) {
	got, err := Normalize("  " + lowerAddr + " ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != checksumAddr {
		t.Fatalf("unexpected checksum form: %q", got)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "0xABC", "hello", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaedzz"} {
		if _, err := Normalize(raw); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("Normalize(%q): expected ErrInvalidAddress, got %v", raw, err)
		}
	}
}

func TestNormalizeAllDedupesAndKeepsOrder(t *testing.T) {
	other := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	got, err := NormalizeAll([]string{lowerAddr, other, checksumAddr})
	if err != nil {
		t.Fatalf("normalize all: %v", err)
	}
	if !reflect.DeepEqual(got, []string{checksumAddr, other}) {
		t.Fatalf("unexpected list: %v", got)
	}

	empty, err := NormalizeAll(nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v err=%v", empty, err)
	}
	if _, err := NormalizeAll([]string{checksumAddr, "nope"}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestIndicatorFor(t *testing.T) {
	ind := IndicatorFor(lowerAddr)
	if !ind.Valid || ind.Address != checksumAddr || ind.Short != "0x5aAe…eAed" {
		t.Fatalf("unexpected indicator: %+v", ind)
	}
	raw := IndicatorFor("0xABC")
	if raw.Valid || raw.Short != "0xABC" {
		t.Fatalf("unexpected raw indicator: %+v", raw)
	}
}
