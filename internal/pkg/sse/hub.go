package sse

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event names published by the timeclock services.
const (
	EventEntryClosed   = "timeclock.entry_closed"
	EventEntryReviewed = "timeclock.entry_reviewed"
	EventMissedPunch   = "timeclock.missed_punch"
	EventSettings      = "timeclock.settings_updated"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	UserID string      `json:"user_id"`
	Event  string      `json:"event"`
	Data   interface{} `json:"data"`
	At     time.Time   `json:"at"`
}

// Subscription is one open stream for a user.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	userID string
	hub    *Hub
	once   sync.Once
}

// Close unregisters the subscription and closes its channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub fans events out to per-user subscriptions. Publishing never blocks:
// a subscriber whose buffer is full misses the event and the drop is counted.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	buffer      int
	dropped     atomic.Int64
	now         func() time.Time
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 10
	}
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
		now:         time.Now,
	}
}

// Subscribe registers a new stream for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*Subscription]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subscribers[sub.userID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subscribers, sub.userID)
	}
}

// Publish sends an event to every stream of userID.
func (h *Hub) Publish(userID, event string, data interface{}) {
	if h == nil {
		return
	}
	ev := Event{UserID: userID, Event: event, Data: data, At: h.now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[userID] {
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// PublishToMany sends the same event to several users, once per distinct user.
func (h *Hub) PublishToMany(userIDs []string, event string, data interface{}) {
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		h.Publish(id, event, data)
	}
}

// Broadcast sends an event to every connected user.
func (h *Hub) Broadcast(event string, data interface{}) {
	if h == nil {
		return
	}
	h.mu.RLock()
	userIDs := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		userIDs = append(userIDs, id)
	}
	h.mu.RUnlock()

	for _, id := range userIDs {
		h.Publish(id, event, data)
	}
}

// SubscriberCount returns the number of active streams for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Dropped returns how many events were discarded because a buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// CloseAll ends every open stream. Used on shutdown so long-lived requests return.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, subs := range h.subscribers {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subscribers, userID)
	}
}
