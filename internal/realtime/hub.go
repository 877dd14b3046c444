package realtime

import (
	"sync"
)

// Event is a change notification on a family channel. It carries only the
// kind of change; subscribers re-fetch the data they care about rather
// than trusting a partial payload.
type Event struct {
	Kind     string
	FamilyID int64
}

// Change kinds published by the services
const (
	EventTaskChanged   = "task_changed"
	EventLedgerChanged = "ledger_changed"
	EventQuestChanged  = "quest_changed"
)

// Hub is an in-process publish/subscribe fan-out keyed by family id.
// Sends never block: a subscriber that falls behind misses events, which
// is fine because events are re-fetch hints, not data.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[chan Event]struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[int64]map[chan Event]struct{})}
}

// Subscribe registers a listener on a family channel. The returned cancel
// function must be called when the listener goes away.
func (h *Hub) Subscribe(familyID int64) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	if h.subscribers[familyID] == nil {
		h.subscribers[familyID] = make(map[chan Event]struct{})
	}
	h.subscribers[familyID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[familyID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, familyID)
			}
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// Publish notifies all family subscribers of a change
func (h *Hub) Publish(familyID int64, kind string) {
	event := Event{Kind: kind, FamilyID: familyID}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[familyID] {
		select {
		case ch <- event:
		default:
		}
	}
}
