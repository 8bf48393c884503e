package sideband

import (
	"log"
	"sync"
	"time"
)

// Broadcaster fans validated lifecycle events out to in-process
// subscribers. Delivery is best-effort: a subscriber whose buffer is full
// misses the event instead of stalling the HTTP handler.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int64]chan LifecycleEvent
	nextID int64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int64]chan LifecycleEvent)}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function is idempotent and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan LifecycleEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan LifecycleEvent, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Broadcaster) Publish(ev LifecycleEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[sideband] subscriber %d buffer full, dropping %s", id, ev.Type)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// suppressor drops duplicate reports of the same lifecycle moment. The
// bootstrap script can fire for an event the agent also reported through a
// second path, so reports with the same terminal, type and tool landing
// within the window count as one.
type suppressor struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func newSuppressor(window time.Duration) *suppressor {
	return &suppressor{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *suppressor) key(ev *LifecycleEvent) string {
	return ev.TerminalID + "\x00" + string(ev.Type) + "\x00" + ev.ToolName
}

// Admit reports whether the event should be delivered. The first report
// within the window wins; later duplicates refresh nothing and are dropped.
func (s *suppressor) Admit(ev *LifecycleEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(ev)
	now := s.now()
	if last, ok := s.seen[key]; ok && now.Sub(last) < s.window {
		return false
	}
	s.seen[key] = now
	return true
}

// Sweep removes entries older than the window so the map does not grow
// with terminal churn. Invoked on a schedule by the server.
func (s *suppressor) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	removed := 0
	for key, last := range s.seen {
		if last.Before(cutoff) {
			delete(s.seen, key)
			removed++
		}
	}
	return removed
}
