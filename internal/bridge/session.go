package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jacobrobertsbaca/blockybird/internal/observability"
	"github.com/jacobrobertsbaca/blockybird/internal/onboarding"
)

var (
	ErrSessionClosed   = errors.New("bridge: session closed")
	ErrRequestNotFound = errors.New("bridge: request not found")
	ErrRequestRejected = errors.New("bridge: account request rejected")
)

// Command kinds the page acts on.
const (
	CommandRequestAccounts = "request_accounts"
	CommandStartInstall    = "start_install"
	CommandStopInstall     = "stop_install"
	CommandPlaySuccess     = "play_success"
)

const defaultQueueLimit = 64

// Command is one instruction for the page.
type Command struct {
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	RequestID string    `json:"request_id,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

// SessionInfo is the admin view of a session.
type SessionInfo struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
	Installed       bool      `json:"installed"`
	Installing      bool      `json:"installing"`
	QueuedCommands  int       `json:"queued_commands"`
	PendingRequests int       `json:"pending_requests"`
}

type requestResult struct {
	accounts []string
	err      error
}

// Session is one browser tab's provider, installer and animator.
type Session struct {
	id        string
	createdAt time.Time
	outbox    *RequestOutbox

	mu         sync.Mutex
	installed  bool
	installing bool
	lastSeen   time.Time
	seq        uint64
	queue      []Command
	waiters    map[string]chan requestResult
	closed     bool
	queueLimit int
}

var (
	_ onboarding.Provider  = (*Session)(nil)
	_ onboarding.Installer = (*Session)(nil)
	_ onboarding.Animator  = (*Session)(nil)
)

func NewSession(id string, installed bool) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		outbox:     NewRequestOutbox(),
		installed:  installed,
		lastSeen:   now,
		waiters:    make(map[string]chan requestResult),
		queueLimit: defaultQueueLimit,
	}
}

func (s *Session) ID() string {
	return s.id
}

// ReportPresence records whether the page found an injected provider.
func (s *Session) ReportPresence(installed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = installed
	s.lastSeen = time.Now()
}

func (s *Session) IsInstalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed && !s.closed
}

// RequestAccounts queues a request for the page and waits for Resolve.
func (s *Session) RequestAccounts(ctx context.Context) ([]string, error) {
	requestID := uuid.NewString()
	ch := make(chan requestResult, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.waiters[requestID] = ch
	cmd := s.enqueueLocked(CommandRequestAccounts, requestID)
	s.mu.Unlock()
	s.outbox.Upsert(PendingRequest{RequestID: requestID, QueuedAt: cmd.QueuedAt})

	select {
	case res := <-ch:
		return res.accounts, res.err
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.waiters, requestID)
		s.mu.Unlock()
		s.outbox.Remove(requestID)
		return nil, ctx.Err()
	}
}

// Resolve answers a pending request. A non-empty errMsg marks a rejection.
func (s *Session) Resolve(requestID string, accounts []string, errMsg string) error {
	key := strings.TrimSpace(requestID)
	s.mu.Lock()
	ch, ok := s.waiters[key]
	if ok {
		delete(s.waiters, key)
	}
	s.lastSeen = time.Now()
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, key)
	}
	s.outbox.Remove(key)

	res := requestResult{accounts: accounts}
	if msg := strings.TrimSpace(errMsg); msg != "" {
		res.err = fmt.Errorf("%w: %s", ErrRequestRejected, msg)
	}
	ch <- res
	return nil
}

func (s *Session) StartInstallFlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installing = true
	s.enqueueLocked(CommandStartInstall, "")
}

// StopInstallFlow queues a stop only when an install flow was started.
func (s *Session) StopInstallFlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installing {
		return
	}
	s.installing = false
	s.enqueueLocked(CommandStopInstall, "")
}

func (s *Session) PlaySuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(CommandPlaySuccess, "")
}

// Drain removes and returns up to max queued commands. max <= 0 drains all.
func (s *Session) Drain(max int) []Command {
	s.mu.Lock()
	n := len(s.queue)
	if max > 0 && max < n {
		n = max
	}
	out := make([]Command, n)
	copy(out, s.queue[:n])
	s.queue = append(s.queue[:0], s.queue[n:]...)
	now := time.Now()
	s.lastSeen = now
	s.mu.Unlock()

	for _, cmd := range out {
		if cmd.RequestID != "" {
			s.outbox.MarkDelivered(cmd.RequestID, now)
		}
	}
	return out
}

// Pending lists unanswered account requests.
func (s *Session) Pending() []PendingRequest {
	return s.outbox.List()
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:              s.id,
		CreatedAt:       s.createdAt,
		LastSeenAt:      s.lastSeen,
		Installed:       s.installed,
		Installing:      s.installing,
		QueuedCommands:  len(s.queue),
		PendingRequests: s.outbox.Len(),
	}
}

// Close fails every pending request. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	waiters := s.waiters
	s.waiters = make(map[string]chan requestResult)
	s.queue = nil
	s.mu.Unlock()

	for id, ch := range waiters {
		s.outbox.Remove(id)
		ch <- requestResult{err: ErrSessionClosed}
	}
	return nil
}

func (s *Session) enqueueLocked(kind, requestID string) Command {
	s.seq++
	cmd := Command{Seq: s.seq, Kind: kind, RequestID: requestID, QueuedAt: time.Now()}
	if s.closed {
		return cmd
	}
	if s.queueLimit > 0 && len(s.queue) >= s.queueLimit {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, cmd)
	observability.RecordBridgeCommand(kind)
	return cmd
}
