package state

import (
	"sync"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/registry"
)

// Event is delivered to listeners after an action changed the snapshot
type Event struct {
	Action   Action
	Changes  Change
	Snapshot Snapshot
}

// Listener observes applied actions. Listeners run on the dispatching
// goroutine after the store lock is released.
type Listener func(Event)

// Store owns a Snapshot and serializes every mutation
type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	listeners map[int]Listener
	nextLis   int
	log       *zap.Logger
}

// NewStore creates a store holding a fresh session snapshot with the
// welcome message.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		snap: Snapshot{
			ActiveTab:        registry.DefaultTab,
			Properties:       []model.PropertyRef{},
			DynamicQuestions: []string{},
		},
		listeners: make(map[int]Listener),
		log:       logger,
	}
	welcome := &AppendMessage{Message: model.Message{
		Type:          model.MessageBot,
		Content:       model.WelcomeMessage,
		LinksResolved: true,
	}}
	welcome.apply(&s.snap)
	return s
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Dispatch applies an action and notifies listeners when it changed
// anything. It returns the change set.
func (s *Store) Dispatch(a Action) Change {
	s.mu.Lock()
	changed := a.apply(&s.snap)
	if changed == 0 {
		s.mu.Unlock()
		s.log.Debug("action ignored", zap.String("action", a.Name()))
		return 0
	}
	ev := Event{Action: a, Changes: changed, Snapshot: s.snap.clone()}
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	s.log.Debug("action applied",
		zap.String("action", a.Name()),
		zap.Stringer("changes", changed))
	for _, l := range ls {
		l(ev)
	}
	return changed
}

// Append adds a message and returns it with its assigned id
func (s *Store) Append(msgType model.MessageType, content string, linksResolved bool) model.Message {
	a := &AppendMessage{Message: model.Message{
		Type:          msgType,
		Content:       content,
		LinksResolved: linksResolved,
	}}
	s.Dispatch(a)
	return a.Message
}

// Subscribe registers a listener and returns its cancel function
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextLis
	s.nextLis++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
