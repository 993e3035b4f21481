package onboarding

import "sync"

// AccountsChanged is emitted every time the gate replaces its account list,
// including with an empty list.
type AccountsChanged struct {
	Accounts []string
	Epoch    uint64
}

// Feed fans account changes out to subscribers. Lists are replaced wholesale,
// so a subscriber that falls behind only loses intermediate values: the most
// recent list is always the one left in its buffer.
type Feed struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	latest *AccountsChanged
	closed bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[*Subscription]struct{})}
}

// Subscription is one observer of a Feed.
type Subscription struct {
	ch   chan AccountsChanged
	feed *Feed
	once sync.Once
}

// C returns the delivery channel. It is closed when the subscription or the
// feed is closed.
func (s *Subscription) C() <-chan AccountsChanged {
	return s.ch
}

func (s *Subscription) Close() {
	s.feed.unsubscribe(s)
}

// Subscribe registers an observer. If the feed has already published, the
// latest list is delivered immediately.
func (f *Feed) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan AccountsChanged, 1), feed: f}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	f.subs[sub] = struct{}{}
	if f.latest != nil {
		sub.ch <- cloneChange(*f.latest)
	}
	return sub
}

// Publish delivers ev to every subscriber without blocking.
func (f *Feed) Publish(ev AccountsChanged) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	latest := cloneChange(ev)
	f.latest = &latest
	for sub := range f.subs {
		deliver(sub.ch, cloneChange(ev))
	}
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	f.subs = nil
}

func (f *Feed) unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs != nil {
		delete(f.subs, sub)
	}
	sub.once.Do(func() { close(sub.ch) })
}

// deliver replaces a stale buffered value with ev. Callers hold the feed lock,
// so this is the only sender on ch.
func deliver(ch chan AccountsChanged, ev AccountsChanged) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

func cloneChange(ev AccountsChanged) AccountsChanged {
	return AccountsChanged{Accounts: copyAccounts(ev.Accounts), Epoch: ev.Epoch}
}
