package server

import "sync"

// teamHub fans encoded team snapshots out to websocket subscribers. Slow subscribers
// only ever see the latest snapshot.
type teamHub struct {
	mu      sync.Mutex
	subs    map[chan []byte]struct{}
	stopped bool
}

func newTeamHub() *teamHub {
	return &teamHub{subs: map[chan []byte]struct{}{}}
}

func (h *teamHub) subscribe() (ch chan []byte, cancel func()) {
	ch = make(chan []byte, 1)
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

func (h *teamHub) broadcast(snapshot []byte) {
	h.mu.Lock()
	for ch := range h.subs {
		// Replace an unread snapshot with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *teamHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *teamHub) stop() {
	h.mu.Lock()
	h.stopped = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}
