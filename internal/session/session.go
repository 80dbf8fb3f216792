// Package session ties one chat session together: its state store, the
// link renderer and binder, the navigation router with its deferred
// loader, and the background work (area fetches, follow-up questions)
// triggered by state changes.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/navigation"
	"rebot/internal/provider"
	"rebot/internal/questions"
	"rebot/internal/render"
	"rebot/internal/service"
	"rebot/internal/state"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrSessionClosed   = errors.New("session is closed")
	ErrInvalidZipCode  = errors.New("zip code must be up to 5 digits")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidProperty = errors.New("property has no zpid")
	ErrInvalidTab      = errors.New("invalid tab")
	ErrExportDisabled  = errors.New("transcript export is not configured")
)

// FeatureExtractor turns a user query into structured search features
type FeatureExtractor interface {
	Extract(ctx context.Context, query string) model.FeatureExtraction
}

// QuestionGenerator produces the follow-up suggestions for a snapshot
type QuestionGenerator interface {
	Generate(ctx context.Context, snap state.Snapshot) []string
}

// Exporter uploads a transcript
type Exporter interface {
	Export(ctx context.Context, sessionID string, messages []model.Message, zipCodes []string) (model.ExportResponse, error)
}

// ActivationLog records link activations
type ActivationLog interface {
	LogActivation(ctx context.Context, rec model.ActivationRecord) error
}

// Deps are the collaborators shared by every session. Only Assistant is
// required.
type Deps struct {
	Assistant   service.Assistant
	Features    FeatureExtractor
	Questions   QuestionGenerator
	Data        provider.DataSource
	Exporter    Exporter
	Activations ActivationLog
	Navigation  navigation.CoordinatorConfig
	Logger      *zap.Logger
}

// Session is one live chat
type Session struct {
	id      string
	created time.Time
	deps    Deps
	log     *zap.Logger

	store    *state.Store
	bus      *navigation.Bus
	router   *navigation.Router
	coord    *navigation.Coordinator
	renderer *render.Renderer
	binder   *render.Binder

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
	qseq        atomic.Uint64

	mu          sync.Mutex
	closed      bool
	lastActive  time.Time
	assistantID string
	zipHistory  []string
}

// New creates a session with the given id
func New(id string, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", id))

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &Session{
		id:         id,
		created:    now,
		deps:       deps,
		log:        logger,
		store:      state.NewStore(logger.Named("state")),
		bus:        navigation.NewBus(0),
		renderer:   render.NewRenderer(logger.Named("render")),
		ctx:        ctx,
		cancel:     cancel,
		lastActive: now,
	}

	var fetcher navigation.DetailsFetcher
	if deps.Data != nil {
		fetcher = deps.Data
	}
	s.coord = navigation.NewCoordinator(s.store, fetcher, deps.Navigation, logger.Named("deferred"))
	s.router = navigation.NewRouter(s.store, s.bus, s.coord, logger.Named("router"))
	s.binder = render.NewBinder(nil)
	s.unsubscribe = s.store.Subscribe(s.onChange)
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time { return s.created }

// LastActive returns the time of the last call that touched the session
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns the current state
func (s *Session) Snapshot() state.Snapshot { return s.store.Snapshot() }

// UIContext returns the assistant-facing summary of the current state
func (s *Session) UIContext() model.UIContext { return state.UIContext(s.store.Snapshot()) }

// Questions returns the current follow-up suggestions, falling back to
// the heuristic set until a generated set has been applied.
func (s *Session) Questions() []string {
	s.touch()
	snap := s.store.Snapshot()
	if len(snap.DynamicQuestions) == questions.Count {
		return snap.DynamicQuestions
	}
	return questions.Heuristic(snap)
}

// Events subscribes to the navigation signals of this session
func (s *Session) Events(buffer int) (<-chan navigation.Signal, func()) {
	return s.bus.Subscribe(buffer)
}

// Watch returns the recent navigation signals and subscribes to the
// ones that follow, with no signal in both.
func (s *Session) Watch(buffer int) ([]navigation.Signal, <-chan navigation.Signal, func()) {
	return s.bus.SubscribeWithHistory(buffer)
}

// History returns the most recent navigation signals
func (s *Session) History() []navigation.Signal { return s.bus.History() }

// Export uploads the transcript with every zip code the session visited
func (s *Session) Export(ctx context.Context) (model.ExportResponse, error) {
	if s.deps.Exporter == nil {
		return model.ExportResponse{}, ErrExportDisabled
	}
	s.touch()

	s.mu.Lock()
	zips := append([]string(nil), s.zipHistory...)
	s.mu.Unlock()

	return s.deps.Exporter.Export(ctx, s.id, s.store.Snapshot().Messages, zips)
}

// Wait blocks until background work started so far has finished
func (s *Session) Wait() {
	s.coord.Wait()
	s.wg.Wait()
}

// Close cancels background work, waits for it and releases subscribers
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.unsubscribe()
	s.coord.Close()
	s.wg.Wait()
	s.bus.Close()

	if f, ok := s.deps.Assistant.(interface{ Forget(string) }); ok {
		if id := s.assistantSession(); id != "" {
			f.Forget(id)
		}
	}
	s.log.Debug("session closed")
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// goBackground runs fn on the session context unless the session is
// closed. The closed check and wg.Add share the lock Close takes.
func (s *Session) goBackground(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return true
}

func (s *Session) assistantSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assistantID
}

func (s *Session) setAssistantSession(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.assistantID = id
	s.mu.Unlock()
}

// onChange regenerates follow-up questions after the changes that can
// make the current set stale.
func (s *Session) onChange(ev state.Event) {
	if s.deps.Questions == nil {
		return
	}
	regen := ev.Changes.Has(state.ChangeMessages | state.ChangeZipCode | state.ChangeMarketTrends)
	if !regen && ev.Changes.Has(state.ChangeProperty) && ev.Snapshot.PropertyDetails != nil {
		regen = true
	}
	if !regen {
		return
	}

	seq := s.qseq.Add(1)
	s.goBackground(func(ctx context.Context) {
		qs := s.deps.Questions.Generate(ctx, s.store.Snapshot())
		if s.store.Dispatch(state.SetDynamicQuestions{Questions: qs, Seq: seq}) == 0 {
			s.log.Debug("discarding superseded follow-up questions", zap.Uint64("seq", seq))
		}
	})
}
