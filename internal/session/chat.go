package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/service"
	"rebot/internal/state"
)

// contextItems caps the place and agent names forwarded per category
const contextItems = 5

// ErrorReplyPrefix starts the bot message appended when a chat call fails
const ErrorReplyPrefix = "Error: I couldn't process your request."

// SendMessage appends the user message, asks the assistant and appends
// its reply with links resolved. A failed assistant call is reported as
// a bot error message, not as an error; the returned message is the bot
// message either way.
func (s *Session) SendMessage(ctx context.Context, text string) (model.Message, error) {
	return s.send(ctx, text, nil)
}

// SendMessageStream is SendMessage with the reply delivered to onDelta
// as it is produced. Assistants that cannot stream deliver the whole
// reply in one delta.
func (s *Session) SendMessageStream(ctx context.Context, text string, onDelta func(string) error) (model.Message, error) {
	if onDelta == nil {
		onDelta = func(string) error { return nil }
	}
	return s.send(ctx, text, onDelta)
}

func (s *Session) send(ctx context.Context, text string, onDelta func(string) error) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, ErrEmptyMessage
	}
	s.mu.Lock()
	closed := s.closed
	s.lastActive = time.Now()
	s.mu.Unlock()
	if closed {
		return model.Message{}, ErrSessionClosed
	}

	start := time.Now()
	s.store.Append(model.MessageUser, text, false)
	s.store.Dispatch(state.SetLoading{Flag: state.LoadingChat, On: true})
	defer s.store.Dispatch(state.SetLoading{Flag: state.LoadingChat, On: false})

	prevZip := s.store.Snapshot().ZipCode
	features := s.extract(ctx, text)
	if zip := features.ExtractedZipCode; len(zip) == 5 {
		if err := s.SetZipCode(zip); err != nil {
			s.log.Debug("ignoring extracted zip code", zap.String("zip_code", zip), zap.Error(err))
		}
	}
	if features.QueryType == model.QueryPropertySearch {
		s.searchListings(prevZip, features)
	}

	req, err := s.buildRequest(text, features)
	if err != nil {
		return s.appendError(err), nil
	}

	var resp *model.ChatResponse
	if onDelta != nil {
		if sa, ok := s.deps.Assistant.(service.StreamingAssistant); ok {
			resp, err = sa.ChatStream(ctx, req, onDelta)
		} else {
			resp, err = s.chat(ctx, req)
			if err == nil {
				err = onDelta(resp.Response)
			}
		}
	} else {
		resp, err = s.chat(ctx, req)
	}
	if err == nil && resp.Error != "" {
		err = errors.New(resp.Error)
	}
	if err != nil {
		s.log.Error("assistant call failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return s.appendError(err), nil
	}
	s.setAssistantSession(resp.SessionID)

	msg := s.appendReply(resp.Response)
	s.log.Info("assistant replied",
		zap.Int64("message_id", msg.ID),
		zap.String("query_type", string(features.QueryType)),
		zap.Int("links", len(s.binder.Bound(msg.ID))),
		zap.Duration("took", time.Since(start)))
	return msg, nil
}

func (s *Session) chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if s.deps.Assistant == nil {
		return nil, errors.New("no assistant configured")
	}
	return s.deps.Assistant.Chat(ctx, req)
}

func (s *Session) extract(ctx context.Context, text string) model.FeatureExtraction {
	if s.deps.Features == nil {
		return service.HeuristicFeatures(text)
	}
	return s.deps.Features.Extract(ctx, text)
}

func (s *Session) buildRequest(text string, features model.FeatureExtraction) (model.ChatRequest, error) {
	snap := s.store.Snapshot()

	fc, err := json.Marshal(model.FeatureContext{Features: &features, UIContext: state.UIContext(snap)})
	if err != nil {
		return model.ChatRequest{}, fmt.Errorf("failed to encode feature context: %w", err)
	}
	lc, err := json.Marshal(locationContext(snap))
	if err != nil {
		return model.ChatRequest{}, fmt.Errorf("failed to encode location context: %w", err)
	}

	return model.ChatRequest{
		Message:         text,
		SessionID:       s.assistantSession(),
		ZipCode:         snap.ZipCode,
		FeatureContext:  string(fc),
		LocationContext: string(lc),
	}, nil
}

func locationContext(snap state.Snapshot) model.LocationContext {
	lc := model.LocationContext{ZipCode: snap.ZipCode}
	if ld := snap.LocationData; ld != nil {
		for _, r := range first(ld.Restaurants, contextItems) {
			lc.Restaurants = append(lc.Restaurants, r.Title)
		}
		for _, t := range first(ld.Transit, contextItems) {
			lc.Transit = append(lc.Transit, t.Title)
		}
		for _, a := range first(ld.Agents, contextItems) {
			lc.Agents = append(lc.Agents, a.FullName)
		}
	}
	if mt := snap.MarketTrends; mt != nil {
		lc.MarketLocation = mt.Location
	}
	return lc
}

func first[T any](list []T, n int) []T {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// appendReply stores the reply as resolved HTML and binds its links
func (s *Session) appendReply(reply string) model.Message {
	a := &state.AppendMessage{Message: model.Message{
		Type:          model.MessageBot,
		Content:       s.renderer.Resolve(reply),
		RawContent:    reply,
		LinksResolved: true,
	}}
	s.store.Dispatch(a)

	content := s.renderer.Render(a.Message)
	s.binder.Bind(a.Message.ID, content.Links)
	return a.Message
}

func (s *Session) appendError(err error) model.Message {
	detail := "Please try again later."
	if err != nil && err.Error() != "" {
		detail = err.Error()
	}
	return s.store.Append(model.MessageBot, ErrorReplyPrefix+" "+detail, false)
}
