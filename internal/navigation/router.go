// Package navigation dispatches activated chat links to the view: it
// decides which tab must be active, whether a property must load first
// and which section or property tab to reveal.
package navigation

import (
	"time"

	"go.uber.org/zap"

	"rebot/internal/links"
	"rebot/internal/registry"
	"rebot/internal/state"
)

// Outcome says what a dispatch did
type Outcome string

const (
	OutcomeSignaled Outcome = "signaled"
	OutcomeDeferred Outcome = "deferred"
	OutcomeInert    Outcome = "inert"
	OutcomeDeadLink Outcome = "dead_link"
	OutcomeIgnored  Outcome = "ignored"
)

// Prerequisite is data that must load before the intent can be shown
type Prerequisite struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Intent describes what must become true for an activation
type Intent struct {
	RequiredTab         registry.Tab         `json:"required_tab,omitempty"`
	RequiredPropertyTab registry.PropertyTab `json:"required_property_tab,omitempty"`
	RequiredSection     registry.Section     `json:"required_section,omitempty"`
	Subsection          string               `json:"subsection,omitempty"`
	Prerequisite        *Prerequisite        `json:"prerequisite_load,omitempty"`
}

// Result reports a dispatch
type Result struct {
	Intent  Intent   `json:"intent"`
	Outcome Outcome  `json:"outcome"`
	Signals []Signal `json:"signals"`
}

// Loader loads a property chat and calls then once navigation may
// proceed.
type Loader interface {
	EnsureLoaded(zpid string, then func())
}

// Router applies activations to the session state. It never fails:
// malformed, unknown or stale activations are logged no-ops.
type Router struct {
	store  *state.Store
	emit   Emitter
	loader Loader
	log    *zap.Logger
}

// NewRouter creates a router. loader may be nil, in which case links
// that need a property load are dead.
func NewRouter(store *state.Store, emit Emitter, loader Loader, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emit == nil {
		emit = EmitterFunc(func(Signal) {})
	}
	return &Router{store: store, emit: emit, loader: loader, log: logger}
}

// Dispatch routes one activation
func (r *Router) Dispatch(a links.Activation) Result {
	return r.dispatch(a, true)
}

func (r *Router) dispatch(a links.Activation, allowLoad bool) Result {
	res := Result{Outcome: OutcomeIgnored, Signals: []Signal{}}
	logger := r.log.With(
		zap.Stringer("link_type", a.Type),
		zap.String("label", a.Label),
		zap.Bool("redispatch", !allowLoad))

	scope := a.Type.Scope()
	if scope == links.ScopeNone {
		logger.Warn("ignoring activation with unknown link type")
		return res
	}
	if a.Section == "" && a.PropertyTab == "" {
		sub := a.Subsection
		a.Address = links.DefaultAddress(a.Type)
		if sub != "" {
			a.Subsection = sub
		}
	}

	if scope == links.ScopeSection && !a.Section.Valid() {
		logger.Info("section target not registered", zap.String("section", string(a.Section)))
		return res
	}
	if scope == links.ScopeProperty && !a.PropertyTab.Valid() {
		logger.Info("property tab target not registered", zap.String("property_tab", string(a.PropertyTab)))
		return res
	}

	snap := r.store.Snapshot()

	// A property link with nothing to show is dead before any tab moves.
	var (
		loaded = snap.LoadedZPID()
		target = a.ZPID
	)
	if target == "" && snap.SelectedProperty != nil {
		target = snap.SelectedProperty.ZPID
	}
	showNow := snap.IsPropertyChat && (a.ZPID == "" || a.ZPID == loaded)
	canLoad := target != "" && allowLoad && r.loader != nil
	if scope == links.ScopeProperty {
		res.Intent.RequiredPropertyTab = a.PropertyTab
		res.Intent.Subsection = a.Subsection
		if !showNow && !canLoad {
			res.Outcome = OutcomeDeadLink
			logger.Info("property link has no property context")
			return res
		}
	}

	if a.ForceTabSwitch && a.Tab.Valid() {
		res.Intent.RequiredTab = a.Tab
		if r.store.Dispatch(state.SetActiveTab{Tab: a.Tab}) != 0 {
			res.Signals = append(res.Signals, r.signal(Signal{Kind: SignalSwitchTab, Tab: a.Tab}))
		}
		snap.ActiveTab = a.Tab
	}

	if scope == links.ScopeProperty {
		if showNow {
			res.Signals = append(res.Signals, r.signal(Signal{
				Kind:        SignalSwitchPropertyTab,
				PropertyTab: a.PropertyTab,
				Subsection:  a.Subsection,
				ElementID:   registry.SubsectionElementID(a.PropertyTab, a.Subsection),
				ZPID:        loaded,
			}))
			res.Outcome = OutcomeSignaled
			return res
		}
		res.Intent.Prerequisite = &Prerequisite{Kind: "property", ID: target}
		res.Outcome = OutcomeDeferred
		logger.Info("deferring navigation until property loads", zap.String("zpid", target))
		r.loader.EnsureLoaded(target, func() {
			again := r.dispatch(a, false)
			logger.Debug("deferred navigation finished", zap.String("outcome", string(again.Outcome)))
		})
		return res
	}

	res.Intent.RequiredSection = a.Section
	if snap.ActiveTab != registry.TabExplore {
		res.Outcome = OutcomeInert
		logger.Debug("section link inert outside explore tab", zap.String("active_tab", string(snap.ActiveTab)))
		return res
	}
	res.Signals = append(res.Signals, r.signal(Signal{
		Kind:      SignalScrollToSection,
		Section:   a.Section,
		ElementID: string(a.Section),
	}))
	res.Outcome = OutcomeSignaled
	return res
}

func (r *Router) signal(s Signal) Signal {
	s.At = time.Now()
	r.emit.Emit(s)
	return s
}
