package render

import (
	"errors"
	"fmt"
	"sync"

	"rebot/internal/links"
)

// ErrLinkNotBound is returned when activating a link that no current
// render produced.
var ErrLinkNotBound = errors.New("link not bound")

// Handler observes every activation fired through a Binder
type Handler func(messageID int64, a links.Activation)

// Binder tracks the links of the latest render of each message. Binding
// a message again replaces its previous links, so re-rendering never
// leaves stale or duplicate handlers behind.
type Binder struct {
	mu       sync.RWMutex
	bindings map[int64][]links.RenderedLink
	handler  Handler
}

// NewBinder creates a binder; h may be nil
func NewBinder(h Handler) *Binder {
	return &Binder{
		bindings: make(map[int64][]links.RenderedLink),
		handler:  h,
	}
}

// Bind attaches the links of a fresh render to messageID and returns how
// many are bound.
func (b *Binder) Bind(messageID int64, ls []links.RenderedLink) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(ls) == 0 {
		delete(b.bindings, messageID)
		return 0
	}
	b.bindings[messageID] = append([]links.RenderedLink(nil), ls...)
	return len(ls)
}

// Unbind detaches every link of messageID
func (b *Binder) Unbind(messageID int64) {
	b.mu.Lock()
	delete(b.bindings, messageID)
	b.mu.Unlock()
}

// Bound returns the links currently bound to messageID
func (b *Binder) Bound(messageID int64) []links.RenderedLink {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]links.RenderedLink(nil), b.bindings[messageID]...)
}

// Activate fires the link at index of messageID exactly once and
// returns its activation payload.
func (b *Binder) Activate(messageID int64, index int) (links.Activation, error) {
	b.mu.RLock()
	ls := b.bindings[messageID]
	if index < 0 || index >= len(ls) {
		b.mu.RUnlock()
		return links.Activation{}, fmt.Errorf("message %d link %d: %w", messageID, index, ErrLinkNotBound)
	}
	a := ls[index].Activation()
	b.mu.RUnlock()

	if b.handler != nil {
		b.handler(messageID, a)
	}
	return a, nil
}
