package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rebot/internal/model"
)

type askerFunc func(ctx context.Context, prompt string) (string, error)

func (f askerFunc) Ask(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

func TestHeuristicFeatures(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, f model.FeatureExtraction)
	}{
		{
			name:  "listing search",
			query: "Find me a home with 3 bedrooms and 2 baths in Austin 78701 under $500k",
			check: func(t *testing.T, f model.FeatureExtraction) {
				assert.Equal(t, model.QueryPropertySearch, f.QueryType)
				assert.Equal(t, "78701", f.ExtractedZipCode)
				require.NotNil(t, f.PropertyFeatures.Bedrooms)
				assert.Equal(t, 3, *f.PropertyFeatures.Bedrooms)
				require.NotNil(t, f.PropertyFeatures.Bathrooms)
				assert.Equal(t, 2, *f.PropertyFeatures.Bathrooms)
				assert.Equal(t, "Austin", f.LocationFeatures.City)
				assert.Equal(t, []float64{0, 500000}, f.Filters.PriceRange)
				assert.Equal(t, model.ActionShowListings, f.ActionRequested)
			},
		},
		{
			name:  "market question",
			query: "What are the market trends right now?",
			check: func(t *testing.T, f model.FeatureExtraction) {
				assert.Equal(t, model.QueryMarketInfo, f.QueryType)
				assert.Equal(t, model.ActionAnalyzeMarket, f.ActionRequested)
				assert.Empty(t, f.ExtractedZipCode)
			},
		},
		{
			name:  "legal question",
			query: "How does zoning work for an ADU?",
			check: func(t *testing.T, f model.FeatureExtraction) {
				assert.Equal(t, model.QueryLegal, f.QueryType)
			},
		},
		{
			name:  "proximity sets action",
			query: "Something near transit please",
			check: func(t *testing.T, f model.FeatureExtraction) {
				require.Len(t, f.LocationFeatures.Proximity, 1)
				assert.Equal(t, "transit", f.LocationFeatures.Proximity[0].To)
				assert.Equal(t, model.ActionShowTransit, f.ActionRequested)
			},
		},
		{
			name:  "price range and sort",
			query: "cheapest condo between 200k and 350k with 900 sqft",
			check: func(t *testing.T, f model.FeatureExtraction) {
				assert.Equal(t, []float64{200000, 350000}, f.Filters.PriceRange)
				assert.Equal(t, SortPriceAsc, f.SortBy)
				assert.Equal(t, "condo", f.PropertyFeatures.PropertyType)
				require.NotNil(t, f.PropertyFeatures.SquareFeet)
				assert.Equal(t, 900, *f.PropertyFeatures.SquareFeet)
			},
		},
		{
			name:  "small talk",
			query: "hello there",
			check: func(t *testing.T, f model.FeatureExtraction) {
				assert.Equal(t, model.QueryGeneral, f.QueryType)
				assert.Empty(t, f.ActionRequested)
				assert.NotNil(t, f.Filters.Amenities)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := HeuristicFeatures(tt.query)
			assert.Equal(t, "heuristic", f.Source)
			tt.check(t, f)
		})
	}
}

func TestFeatureExtractor_UsesModel(t *testing.T) {
	var prompt string
	asker := askerFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "```json\n" + `{"queryType": "property_search", "propertyFeatures": {"bedrooms": [2, 3], "bathrooms": "2"},
			"filters": {"priceRange": ["$300,000", 450000]}, "actionRequested": "show_listings"}` + "\n```", nil
	})
	e := NewFeatureExtractor(asker, time.Second, zaptest.NewLogger(t))

	f := e.Extract(context.Background(), "2-3 bed places in 02134 up to 450k")

	assert.Contains(t, prompt, "2-3 bed places in 02134")
	assert.Equal(t, "ai", f.Source)
	assert.Equal(t, model.QueryPropertySearch, f.QueryType)
	require.NotNil(t, f.PropertyFeatures.Bedrooms)
	assert.Equal(t, 2, *f.PropertyFeatures.Bedrooms)
	require.NotNil(t, f.PropertyFeatures.Bathrooms)
	assert.Equal(t, 2, *f.PropertyFeatures.Bathrooms)
	assert.Equal(t, []float64{300000, 450000}, f.Filters.PriceRange)
	// the model left the zip out; the pattern match fills it
	assert.Equal(t, "02134", f.ExtractedZipCode)
}

func TestFeatureExtractor_FallsBack(t *testing.T) {
	tests := []struct {
		name  string
		asker Asker
	}{
		{name: "no model", asker: nil},
		{name: "model error", asker: askerFunc(func(context.Context, string) (string, error) {
			return "", errors.New("503")
		})},
		{name: "prose reply", asker: askerFunc(func(context.Context, string) (string, error) {
			return "I think they want a house.", nil
		})},
		{name: "invalid query type", asker: askerFunc(func(context.Context, string) (string, error) {
			return `{"queryType": "astrology"}`, nil
		})},
		{name: "bad zip", asker: askerFunc(func(context.Context, string) (string, error) {
			return `{"queryType": "general", "extractedZipCode": "ABCDE"}`, nil
		})},
		{name: "inverted price range", asker: askerFunc(func(context.Context, string) (string, error) {
			return `{"filters": {"priceRange": [900000, 100000]}}`, nil
		})},
		{name: "slow model", asker: askerFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewFeatureExtractor(tt.asker, 50*time.Millisecond, zaptest.NewLogger(t))
			f := e.Extract(context.Background(), "looking for a condo in 60616")
			assert.Equal(t, "heuristic", f.Source)
			assert.Equal(t, model.QueryPropertySearch, f.QueryType)
			assert.Equal(t, "60616", f.ExtractedZipCode)
		})
	}
}
