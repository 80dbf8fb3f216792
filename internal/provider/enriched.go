package provider

import (
	"context"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/repository"
)

// PropertyStore is the part of the property repository Enriched uses
type PropertyStore interface {
	PropertiesByZip(ctx context.Context, zipCode string, f *repository.PropertyFilter, limit int) ([]model.PropertyRef, error)
	PropertyByZPID(ctx context.Context, zpid string) (*model.PropertyDetails, error)
	SimilarProperties(ctx context.Context, zpid string, limit int) ([]model.PropertyRef, error)
	SaveProperty(ctx context.Context, zipCode string, d *model.PropertyDetails) error
}

// Enriched wraps a DataSource with the property store. Fetched records
// are written through to the store, the store answers when the upstream
// API fails, and detail records gain their nearest neighbours.
type Enriched struct {
	DataSource
	store        PropertyStore
	similarLimit int
	log          *zap.Logger
}

// NewEnriched wraps src. similarLimit caps the similar listings attached
// to each record.
func NewEnriched(src DataSource, store PropertyStore, similarLimit int, logger *zap.Logger) *Enriched {
	if logger == nil {
		logger = zap.NewNop()
	}
	if similarLimit <= 0 {
		similarLimit = 5
	}
	return &Enriched{DataSource: src, store: store, similarLimit: similarLimit, log: logger.Named("enriched")}
}

// Properties falls back to stored listings when the upstream search fails
func (e *Enriched) Properties(ctx context.Context, zipCode string) ([]model.PropertyRef, error) {
	props, err := e.DataSource.Properties(ctx, zipCode)
	if err == nil {
		return props, nil
	}
	stored, serr := e.store.PropertiesByZip(ctx, zipCode, nil, 0)
	if serr != nil || len(stored) == 0 {
		return nil, err
	}
	e.log.Warn("property search failed, serving stored listings",
		zap.String("zip_code", zipCode), zap.Int("count", len(stored)), zap.Error(err))
	return stored, nil
}

// PropertyDetails fetches upstream, saves the record and attaches
// similar listings. The stored copy is served when upstream fails.
func (e *Enriched) PropertyDetails(ctx context.Context, zpid string) (*model.PropertyDetails, error) {
	logger := e.log.With(zap.String("zpid", zpid))

	d, err := e.DataSource.PropertyDetails(ctx, zpid)
	if err != nil {
		stored, serr := e.store.PropertyByZPID(ctx, zpid)
		if serr != nil {
			logger.Warn("property store lookup failed", zap.Error(serr))
		}
		if stored == nil {
			return nil, err
		}
		logger.Warn("property details fetch failed, serving stored record", zap.Error(err))
		d = stored
	} else if serr := e.store.SaveProperty(ctx, "", d); serr != nil {
		logger.Warn("failed to store property record", zap.Error(serr))
	}

	similar, err := e.store.SimilarProperties(ctx, zpid, e.similarLimit)
	if err != nil {
		logger.Warn("similar property lookup failed", zap.Error(err))
		return d, nil
	}
	if len(similar) > 0 {
		d.Similar = similar
	}
	return d, nil
}

// SearchProperties filters the stored listings of zipCode by the
// constraints extracted from a chat query
func (e *Enriched) SearchProperties(ctx context.Context, zipCode string, f model.FeatureExtraction) ([]model.PropertyRef, error) {
	filter := repository.FilterFromFeatures(f)
	props, err := e.store.PropertiesByZip(ctx, zipCode, filter, 0)
	if err != nil {
		return nil, err
	}
	e.log.Debug("stored listing search",
		zap.String("zip_code", zipCode),
		zap.Int("amenities", len(filter.Amenities)),
		zap.Int("count", len(props)))
	return props, nil
}

var _ Searcher = (*Enriched)(nil)
