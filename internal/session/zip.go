package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/provider"
	"rebot/internal/state"
)

// FetchingNoticePrefix starts the bot notice appended when a complete
// zip code is entered.
const FetchingNoticePrefix = "Fetching local information for ZIP code"

// partialZip accepts what a zip input may hold while being typed
var partialZip = regexp.MustCompile(`^\d{0,5}$`)

// SetZipCode replaces the session zip code. Partial input (fewer than 5
// digits) is stored without side effects. A complete zip appends the
// fetching notice, unless the last message already is one, and loads
// the area data in the background. Setting the current value again is a
// no-op.
func (s *Session) SetZipCode(zip string) error {
	zip = strings.TrimSpace(zip)
	if !partialZip.MatchString(zip) {
		return fmt.Errorf("%q: %w", zip, ErrInvalidZipCode)
	}
	s.touch()

	if s.store.Dispatch(state.SetZipCode{ZipCode: zip}) == 0 {
		return nil
	}
	if len(zip) < 5 {
		// fetches still running for the previous zip will not settle
		for _, f := range []state.LoadingFlag{state.LoadingLocation, state.LoadingProperties, state.LoadingMarketTrends} {
			s.store.Dispatch(state.SetLoading{Flag: f, On: false})
		}
		return nil
	}

	s.mu.Lock()
	s.zipHistory = append(s.zipHistory, zip)
	s.mu.Unlock()

	snap := s.store.Snapshot()
	if last, ok := snap.LastMessage(); !ok || !strings.HasPrefix(last.Content, FetchingNoticePrefix) {
		s.store.Append(model.MessageBot, fmt.Sprintf("%s %s...", FetchingNoticePrefix, zip), false)
	}

	s.fetchArea(zip)
	return nil
}

// fetchArea loads location data then listings, and market trends
// independently. The store drops results that arrive after the zip code
// changed again.
func (s *Session) fetchArea(zip string) {
	data := s.deps.Data
	if data == nil {
		s.log.Debug("no data source configured, skipping area fetch", zap.String("zip_code", zip))
		return
	}
	logger := s.log.With(zap.String("zip_code", zip))

	s.store.Dispatch(state.SetLoading{Flag: state.LoadingLocation, On: true})
	started := s.goBackground(func(ctx context.Context) {
		start := time.Now()
		ld, err := data.LocationData(ctx, zip)
		if err == nil && ld == nil {
			err = fmt.Errorf("no location data for %s", zip)
		}
		if err != nil {
			logger.Warn("location data fetch failed", zap.Error(err))
			s.settle(zip, state.LoadingLocation)
			return
		}
		if s.store.Dispatch(state.SetLocationData{Data: ld, ZipCode: zip}) == 0 {
			return
		}
		logger.Info("location data loaded",
			zap.Int("restaurants", len(ld.Restaurants)),
			zap.Int("transit", len(ld.Transit)),
			zap.Int("agents", len(ld.Agents)),
			zap.Duration("took", time.Since(start)))

		s.store.Dispatch(state.SetLoading{Flag: state.LoadingProperties, On: true})
		props, err := data.Properties(ctx, zip)
		if err != nil {
			logger.Warn("property search failed", zap.Error(err))
			s.settle(zip, state.LoadingProperties)
			return
		}
		if s.store.Dispatch(state.SetProperties{Properties: props, ZipCode: zip}) == 0 {
			return
		}
		logger.Info("properties loaded", zap.Int("count", len(props)))
	})
	if !started {
		s.store.Dispatch(state.SetLoading{Flag: state.LoadingLocation, On: false})
		return
	}

	s.store.Dispatch(state.SetLoading{Flag: state.LoadingMarketTrends, On: true})
	started = s.goBackground(func(ctx context.Context) {
		trends, err := data.MarketTrends(ctx, zip)
		if err == nil && trends == nil {
			err = fmt.Errorf("no market trends for %s", zip)
		}
		if err != nil {
			logger.Warn("market trends fetch failed", zap.Error(err))
			s.settle(zip, state.LoadingMarketTrends)
			return
		}
		if s.store.Dispatch(state.SetMarketTrends{Trends: trends, ZipCode: zip}) == 0 {
			return
		}
		logger.Info("market trends loaded", zap.String("market_type", trends.MarketType))
	})
	if !started {
		s.store.Dispatch(state.SetLoading{Flag: state.LoadingMarketTrends, On: false})
	}
}

// searchListings replaces the listings of an already loaded zip code with
// the stored listings matching a property search. Queries that name a
// different zip code are left to the area fetch that zip code triggers.
func (s *Session) searchListings(zip string, features model.FeatureExtraction) {
	searcher, ok := s.deps.Data.(provider.Searcher)
	if !ok || len(zip) != 5 {
		return
	}
	if ez := features.ExtractedZipCode; ez != "" && ez != zip {
		return
	}
	logger := s.log.With(zap.String("zip_code", zip))

	s.goBackground(func(ctx context.Context) {
		props, err := searcher.SearchProperties(ctx, zip, features)
		if err != nil {
			logger.Warn("listing search failed", zap.Error(err))
			return
		}
		if len(props) == 0 {
			logger.Debug("listing search matched nothing, keeping current listings")
			return
		}
		if s.store.Dispatch(state.SetProperties{Properties: props, ZipCode: zip}) != 0 {
			logger.Info("listings narrowed by chat query", zap.Int("count", len(props)))
		}
	})
}

// settle clears a loading flag unless a newer zip code owns it
func (s *Session) settle(zip string, flag state.LoadingFlag) {
	if !s.stale(zip) {
		s.store.Dispatch(state.SetLoading{Flag: flag, On: false})
	}
}

func (s *Session) stale(zip string) bool {
	return s.store.Snapshot().ZipCode != zip
}
