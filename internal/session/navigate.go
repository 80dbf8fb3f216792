package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rebot/internal/links"
	"rebot/internal/model"
	"rebot/internal/navigation"
	"rebot/internal/registry"
	"rebot/internal/render"
	"rebot/internal/state"
)

const activationLogTimeout = 5 * time.Second

// Render renders a transcript message and binds its links, replacing any
// links bound by an earlier render of the same message.
func (s *Session) Render(messageID int64) (render.Content, error) {
	s.touch()
	snap := s.store.Snapshot()
	m, ok := snap.Message(messageID)
	if !ok {
		return render.Content{}, fmt.Errorf("message %d: %w", messageID, ErrMessageNotFound)
	}
	content := s.renderer.Render(m)
	s.binder.Bind(m.ID, content.Links)
	return content, nil
}

// ActivateLink fires the link at index of a rendered message and routes
// it. Links are only bound once their message has been rendered.
func (s *Session) ActivateLink(messageID int64, index int) (navigation.Result, error) {
	s.touch()
	a, err := s.binder.Activate(messageID, index)
	if err != nil {
		return navigation.Result{}, err
	}
	res := s.router.Dispatch(a)
	s.logActivation(messageID, a, res.Outcome)
	return res, nil
}

// Navigate routes an activation that did not come from a bound link
func (s *Session) Navigate(a links.Activation) navigation.Result {
	s.touch()
	res := s.router.Dispatch(a)
	s.logActivation(0, a, res.Outcome)
	return res
}

// SetActiveTab switches the main view tab
func (s *Session) SetActiveTab(tab string) error {
	t, err := registry.ParseTab(tab)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTab, err)
	}
	s.touch()
	s.store.Dispatch(state.SetActiveTab{Tab: t})
	return nil
}

// SelectProperty highlights a listing without entering its property chat
func (s *Session) SelectProperty(p model.PropertyRef) error {
	if p.ZPID == "" {
		return ErrInvalidProperty
	}
	if p.ID == "" {
		p.ID = p.ZPID
	}
	s.touch()
	s.store.Dispatch(state.SelectProperty{Property: p})
	return nil
}

// ClearProperty leaves the property chat and clears the selection
func (s *Session) ClearProperty() {
	s.touch()
	s.store.Dispatch(state.ClearProperty{})
}

// OpenPropertyChat enters the property chat for zpid and loads its
// record. Opening the chat that is already loaded or loading is a no-op.
func (s *Session) OpenPropertyChat(zpid string) error {
	if zpid == "" {
		return ErrInvalidProperty
	}
	s.touch()
	snap := s.store.Snapshot()
	if snap.LoadedZPID() == zpid {
		return nil
	}
	s.coord.EnsureLoaded(zpid, nil)
	return nil
}

func (s *Session) logActivation(messageID int64, a links.Activation, outcome navigation.Outcome) {
	if s.deps.Activations == nil {
		return
	}
	rec := model.ActivationRecord{
		SessionID:   s.id,
		MessageID:   messageID,
		LinkType:    a.Type.String(),
		Label:       a.Label,
		ZPID:        a.ZPID,
		Outcome:     string(outcome),
		ActivatedAt: time.Now(),
	}
	s.goBackground(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activationLogTimeout)
		defer cancel()
		if err := s.deps.Activations.LogActivation(ctx, rec); err != nil {
			s.log.Warn("failed to record link activation",
				zap.String("link_type", rec.LinkType), zap.Error(err))
		}
	})
}
