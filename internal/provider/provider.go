// Package provider fetches listings, property records and neighbourhood
// data for a session.
package provider

import (
	"context"
	"errors"

	"rebot/internal/model"
)

// ErrNotFound is returned when a property does not exist upstream
var ErrNotFound = errors.New("property not found")

// DataSource is everything a session loads for a zip code or property
type DataSource interface {
	LocationData(ctx context.Context, zipCode string) (*model.LocationData, error)
	MarketTrends(ctx context.Context, zipCode string) (*model.MarketTrends, error)
	Properties(ctx context.Context, zipCode string) ([]model.PropertyRef, error)
	PropertyDetails(ctx context.Context, zpid string) (*model.PropertyDetails, error)
}

// Searcher narrows the listings of a zip code to the features of a chat
// query
type Searcher interface {
	SearchProperties(ctx context.Context, zipCode string, f model.FeatureExtraction) ([]model.PropertyRef, error)
}
