package navigation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/state"
)

// Mode selects when a deferred navigation is re-dispatched
type Mode string

const (
	// ModeChained re-dispatches once the detail fetch has resolved
	ModeChained Mode = "chained"
	// ModeFixedDelay re-dispatches after SettleDelay whether or not the
	// fetch has finished
	ModeFixedDelay Mode = "fixed_delay"
)

// ParseMode converts a config value into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChained, ModeFixedDelay:
		return Mode(s), nil
	case "":
		return ModeChained, nil
	}
	return "", fmt.Errorf("unknown deferred navigation mode %q", s)
}

// DetailsFetcher fetches a property detail record
type DetailsFetcher interface {
	PropertyDetails(ctx context.Context, zpid string) (*model.PropertyDetails, error)
}

// CoordinatorConfig tunes the deferred loader
type CoordinatorConfig struct {
	Mode        Mode
	SettleDelay time.Duration
	// MaxWait bounds one detail fetch. When it expires the load fails and
	// chained re-dispatches are dropped, whether or not the fetcher
	// honours its context.
	MaxWait time.Duration
}

// DefaultCoordinatorConfig returns the chained policy with a one second
// settle delay and a ten second fetch bound.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{Mode: ModeChained, SettleDelay: time.Second, MaxWait: 10 * time.Second}
}

type flight struct {
	waiters []func()
}

// Coordinator loads property chats on behalf of the router
type Coordinator struct {
	store   *state.Store
	fetcher DetailsFetcher
	cfg     CoordinatorConfig
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*flight
}

// NewCoordinator creates a coordinator bound to one session store
func NewCoordinator(store *state.Store, fetcher DetailsFetcher, cfg CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCoordinatorConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = def.SettleDelay
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:    store,
		fetcher:  fetcher,
		cfg:      cfg,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]*flight),
	}
}

// Mode returns the active re-dispatch policy
func (c *Coordinator) Mode() Mode { return c.cfg.Mode }

// EnsureLoaded enters the property chat for zpid right away, fetches its
// record in the background and schedules then according to the mode.
// A fetch already in flight for zpid is shared. then may be nil.
func (c *Coordinator) EnsureLoaded(zpid string, then func()) {
	logger := c.log.With(zap.String("zpid", zpid), zap.String("mode", string(c.cfg.Mode)))

	c.mu.Lock()
	f, running := c.inflight[zpid]
	if !running {
		f = &flight{}
		c.inflight[zpid] = f
	}
	if then != nil && c.cfg.Mode == ModeChained {
		f.waiters = append(f.waiters, then)
	}
	c.mu.Unlock()

	if !running {
		c.store.Dispatch(state.BeginPropertyChat{ZPID: zpid})
		c.wg.Add(1)
		go c.fetch(zpid, logger)
	}

	if then != nil && c.cfg.Mode == ModeFixedDelay {
		c.wg.Add(1)
		time.AfterFunc(c.cfg.SettleDelay, func() {
			defer c.wg.Done()
			then()
		})
	}
}

func (c *Coordinator) fetch(zpid string, logger *zap.Logger) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.MaxWait)
	defer cancel()

	start := time.Now()
	var (
		details *model.PropertyDetails
		err     error
	)
	if c.fetcher == nil {
		err = fmt.Errorf("no property details source configured")
	} else {
		details, err = c.fetchWithin(ctx, zpid)
	}
	if err == nil && details == nil {
		err = fmt.Errorf("property %s not found", zpid)
	}

	c.mu.Lock()
	f := c.inflight[zpid]
	delete(c.inflight, zpid)
	c.mu.Unlock()

	applied := c.store.Dispatch(state.CompletePropertyChat{ZPID: zpid, Details: details, Err: err})

	switch {
	case err != nil:
		logger.Warn("property details load failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	case applied == 0:
		logger.Info("dropping stale property details", zap.Duration("took", time.Since(start)))
		return
	}
	logger.Info("property details loaded", zap.Duration("took", time.Since(start)))

	if f != nil {
		for _, then := range f.waiters {
			then()
		}
	}
}

type fetchResult struct {
	details *model.PropertyDetails
	err     error
}

// fetchWithin gives up when ctx ends even if the fetcher does not watch
// ctx. The abandoned call finishes on its own goroutine.
func (c *Coordinator) fetchWithin(ctx context.Context, zpid string) (*model.PropertyDetails, error) {
	done := make(chan fetchResult, 1)
	go func() {
		d, err := c.fetcher.PropertyDetails(ctx, zpid)
		done <- fetchResult{details: d, err: err}
	}()
	select {
	case r := <-done:
		return r.details, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("property %s details: %w", zpid, ctx.Err())
	}
}

// Wait blocks until every fetch and scheduled re-dispatch has finished
func (c *Coordinator) Wait() { c.wg.Wait() }

// Close cancels in-flight fetches and waits for pending work
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}
