package navigation

import (
	"sync"
	"time"

	"rebot/internal/registry"
)

// SignalKind names a view command
type SignalKind string

const (
	SignalSwitchTab         SignalKind = "switch_tab"
	SignalSwitchPropertyTab SignalKind = "switch_property_tab"
	SignalScrollToSection   SignalKind = "scroll_to_section"
)

// Signal is a fire-and-forget command for whichever view is mounted
type Signal struct {
	Kind        SignalKind           `json:"kind"`
	Tab         registry.Tab         `json:"tab,omitempty"`
	PropertyTab registry.PropertyTab `json:"property_tab,omitempty"`
	Subsection  string               `json:"subsection,omitempty"`
	Section     registry.Section     `json:"section,omitempty"`
	ElementID   string               `json:"element_id,omitempty"`
	ZPID        string               `json:"zpid,omitempty"`
	At          time.Time            `json:"at"`
}

// Emitter receives router signals. Emit must not block.
type Emitter interface {
	Emit(Signal)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(Signal)

// Emit calls f
func (f EmitterFunc) Emit(s Signal) { f(s) }

const defaultHistory = 64

// Bus fans signals out to subscribers. A subscriber whose buffer is full
// misses the signal; nothing waits on a slow or departed view.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Signal
	nextID  int
	history []Signal
	limit   int
	closed  bool
}

// NewBus creates a bus that keeps the last historyLimit signals
func NewBus(historyLimit int) *Bus {
	if historyLimit <= 0 {
		historyLimit = defaultHistory
	}
	return &Bus{subs: make(map[int]chan Signal), limit: historyLimit}
}

// Emit records the signal and offers it to every subscriber
func (b *Bus) Emit(s Signal) {
	if s.At.IsZero() {
		s.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.history = append(b.history, s)
	if len(b.history) > b.limit {
		b.history = b.history[len(b.history)-b.limit:]
	}
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe returns a channel of future signals and a cancel function.
// The channel is closed on cancel or when the bus closes.
func (b *Bus) Subscribe(buffer int) (<-chan Signal, func()) {
	_, ch, cancel := b.SubscribeWithHistory(buffer)
	return ch, cancel
}

// SubscribeWithHistory is Subscribe that also returns the retained
// signals. Every signal lands in exactly one of the two.
func (b *Bus) SubscribeWithHistory(buffer int) ([]Signal, <-chan Signal, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Signal, buffer)
	b.mu.Lock()
	history := append([]Signal{}, b.history...)
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return history, ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return history, ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
}

// History returns the retained signals, oldest first
func (b *Bus) History() []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Signal(nil), b.history...)
}

// Close closes every subscriber channel; later signals are dropped
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
