package bridge

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PendingRequest tracks one account request awaiting the page's answer.
type PendingRequest struct {
	RequestID       string    `json:"request_id"`
	Deliveries      int       `json:"deliveries"`
	QueuedAt        time.Time `json:"queued_at"`
	LastDeliveredAt time.Time `json:"last_delivered_at,omitempty"`
}

// RequestOutbox stores pending requests by request id.
type RequestOutbox struct {
	mu    sync.RWMutex
	items map[string]PendingRequest
}

func NewRequestOutbox() *RequestOutbox {
	return &RequestOutbox{
		items: make(map[string]PendingRequest),
	}
}

func (o *RequestOutbox) Upsert(item PendingRequest) {
	key := strings.TrimSpace(item.RequestID)
	if key == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[key] = item
}

// MarkDelivered records that the request was handed to the page.
func (o *RequestOutbox) MarkDelivered(requestID string, at time.Time) (PendingRequest, bool) {
	key := strings.TrimSpace(requestID)
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[key]
	if !ok {
		return PendingRequest{}, false
	}
	item.Deliveries++
	item.LastDeliveredAt = at
	o.items[key] = item
	return item, true
}

func (o *RequestOutbox) Remove(requestID string) {
	key := strings.TrimSpace(requestID)
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, key)
}

func (o *RequestOutbox) Get(requestID string) (PendingRequest, bool) {
	key := strings.TrimSpace(requestID)
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[key]
	return item, ok
}

func (o *RequestOutbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// List returns pending requests oldest first.
func (o *RequestOutbox) List() []PendingRequest {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PendingRequest, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].RequestID < out[j].RequestID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out
}
