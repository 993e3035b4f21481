package onboarding

import (
	"reflect"
	"testing"
)

func TestFeedCoalescesToLatest(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe()
	defer sub.Close()

	f.Publish(AccountsChanged{Accounts: []string{"0x1"}, Epoch: 1})
	f.Publish(AccountsChanged{Accounts: []string{"0x2"}, Epoch: 2})
	f.Publish(AccountsChanged{Accounts: []string{"0x3"}, Epoch: 3})

	got := <-sub.C()
	if got.Epoch != 3 || !reflect.DeepEqual(got.Accounts, []string{"0x3"}) {
		t.Fatalf("expected latest change, got %+v", got)
	}
	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected extra delivery: %+v", extra)
	default:
	}
}

func TestFeedReplaysLatestToLateSubscriber(t *testing.T) {
	f := NewFeed()
	f.Publish(AccountsChanged{Accounts: []string{"0xABC"}, Epoch: 4})

	sub := f.Subscribe()
	defer sub.Close()
	got := <-sub.C()
	if got.Epoch != 4 || got.Accounts[0] != "0xABC" {
		t.Fatalf("unexpected replay: %+v", got)
	}
}

func TestFeedCloseClosesSubscribers(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe()
	f.Close()
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected closed channel")
	}
	sub.Close()

	late := f.Subscribe()
	if _, ok := <-late.C(); ok {
		t.Fatalf("expected subscription on closed feed to be closed")
	}
	f.Publish(AccountsChanged{Accounts: []string{"0x1"}})
}

func TestFeedCopiesAccounts(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe()
	defer sub.Close()

	accounts := []string{"0xABC"}
	f.Publish(AccountsChanged{Accounts: accounts})
	accounts[0] = "0xMUTATED"
	if got := <-sub.C(); got.Accounts[0] != "0xABC" {
		t.Fatalf("feed aliases publisher slice: %v", got.Accounts)
	}
}
