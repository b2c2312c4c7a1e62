package jobs

import (
	"sync"

	"github.com/jonathan/script-generator/internal/types"
)

// subscriberBuffer is the per-subscriber channel capacity. Updates beyond it
// are dropped for that subscriber, except the terminal one.
const subscriberBuffer = 16

// Hub fans task status updates out to watchers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan types.StatusResponse]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan types.StatusResponse]struct{})}
}

// Subscribe registers a watcher for taskID. The channel is closed after the
// terminal update is delivered or when the returned cancel func is called.
func (h *Hub) Subscribe(taskID string) (<-chan types.StatusResponse, func()) {
	ch := make(chan types.StatusResponse, subscriberBuffer)

	h.mu.Lock()
	if h.subs[taskID] == nil {
		h.subs[taskID] = make(map[chan types.StatusResponse]struct{})
	}
	h.subs[taskID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() { h.unsubscribe(taskID, ch) }
}

func (h *Hub) unsubscribe(taskID string, ch chan types.StatusResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[taskID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, taskID)
	}
}

// Publish delivers an update to every watcher of its task. Non-terminal
// updates never block; a terminal update closes all watcher channels.
func (h *Hub) Publish(update types.StatusResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[update.TaskID]
	terminal := update.Status.Terminal()
	for ch := range set {
		if terminal {
			// Make room so the final state always arrives.
			select {
			case ch <- update:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- update
			}
			close(ch)
			continue
		}
		select {
		case ch <- update:
		default:
		}
	}
	if terminal {
		delete(h.subs, update.TaskID)
	}
}

// Watchers returns the number of active watchers for taskID.
func (h *Hub) Watchers(taskID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[taskID])
}
