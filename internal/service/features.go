package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/utils"
)

// Asker sends a one-off prompt and returns the raw reply
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

const featurePrompt = `You are a real estate assistant that extracts structured data from user queries.

Extract the following information from this query:
- queryType: one of general, property_search, property_detail, market_info, legal, preferences, transit_amenities
- extractedZipCode: any US ZIP code mentioned (5 digits)
- propertyFeatures: bedrooms, bathrooms, squareFeet, propertyType, yearBuilt, amenities
- locationFeatures: city, neighborhood, proximity (list of {to, distance, unit})
- actionRequested: one of show_listings, show_details, show_restaurants, show_transit, analyze_market, show_amenities, show_route
- filters: priceRange [min, max], mustHave
- sortBy: price_asc, price_desc or newest

Respond ONLY with a JSON object using these field names. Omit fields that are not mentioned.

User query: %s`

var fiveDigits = regexp.MustCompile(`^\d{5}$`)

// aiFeatures mirrors FeatureExtraction loosely; models often return
// numbers as strings or ranges.
type aiFeatures struct {
	QueryType        string `json:"queryType"`
	ExtractedZipCode any    `json:"extractedZipCode"`
	PropertyFeatures struct {
		Bedrooms     any      `json:"bedrooms"`
		Bathrooms    any      `json:"bathrooms"`
		SquareFeet   any      `json:"squareFeet"`
		PropertyType string   `json:"propertyType"`
		YearBuilt    any      `json:"yearBuilt"`
		Amenities    []string `json:"amenities"`
	} `json:"propertyFeatures"`
	LocationFeatures model.LocationFeatures `json:"locationFeatures"`
	ActionRequested  string                 `json:"actionRequested"`
	Filters          struct {
		PriceRange []any    `json:"priceRange"`
		MustHave   []string `json:"mustHave"`
		Amenities  []string `json:"amenities"`
	} `json:"filters"`
	SortBy string `json:"sortBy"`
}

// FeatureExtractor turns a chat message into structured features. It
// asks the model first and falls back to HeuristicFeatures.
type FeatureExtractor struct {
	asker   Asker
	timeout time.Duration
	log     *zap.Logger
}

// NewFeatureExtractor creates an extractor. asker may be nil, in which
// case only the heuristic runs.
func NewFeatureExtractor(asker Asker, timeout time.Duration, logger *zap.Logger) *FeatureExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FeatureExtractor{asker: asker, timeout: timeout, log: logger.Named("features")}
}

// Extract never fails; errors from the model are logged and the
// heuristic result is returned instead.
func (e *FeatureExtractor) Extract(ctx context.Context, query string) model.FeatureExtraction {
	query = strings.TrimSpace(query)
	fallback := HeuristicFeatures(query)
	if query == "" || e.asker == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.asker.Ask(ctx, fmt.Sprintf(featurePrompt, query))
	if err != nil {
		e.log.Warn("AI feature extraction failed, using heuristic", zap.Error(err))
		return fallback
	}

	var raw aiFeatures
	if err := utils.ParseAIJSON(reply, &raw); err != nil {
		e.log.Warn("AI feature extraction returned unparseable output", zap.Error(err))
		return fallback
	}

	out, err := raw.normalize()
	if err != nil {
		e.log.Warn("AI feature extraction failed validation", zap.Error(err))
		return fallback
	}
	if out.ExtractedZipCode == "" {
		out.ExtractedZipCode = fallback.ExtractedZipCode
	}
	return out
}

func (r aiFeatures) normalize() (model.FeatureExtraction, error) {
	out := model.FeatureExtraction{
		QueryType:        model.QueryGeneral,
		LocationFeatures: r.LocationFeatures,
		ActionRequested:  r.ActionRequested,
		SortBy:           r.SortBy,
		Source:           "ai",
		Filters: model.Filters{
			Amenities: nonNil(r.Filters.Amenities),
			MustHave:  r.Filters.MustHave,
		},
	}

	if r.QueryType != "" {
		qt := model.QueryType(strings.ToLower(r.QueryType))
		if !qt.Valid() {
			return out, fmt.Errorf("unknown queryType %q", r.QueryType)
		}
		out.QueryType = qt
	}

	if zip := strings.TrimSpace(stringOf(r.ExtractedZipCode)); zip != "" {
		if !fiveDigits.MatchString(zip) {
			return out, fmt.Errorf("extractedZipCode %q is not a 5 digit ZIP code", zip)
		}
		out.ExtractedZipCode = zip
	}

	pf := r.PropertyFeatures
	out.PropertyFeatures = model.PropertyFeatures{
		Bedrooms:     intOf(pf.Bedrooms),
		Bathrooms:    intOf(pf.Bathrooms),
		SquareFeet:   intOf(pf.SquareFeet),
		PropertyType: pf.PropertyType,
		YearBuilt:    intOf(pf.YearBuilt),
		Amenities:    pf.Amenities,
	}
	if b := out.PropertyFeatures.Bedrooms; b != nil && (*b < 0 || *b > 20) {
		return out, fmt.Errorf("bedrooms must be between 0 and 20, got %d", *b)
	}

	if len(r.Filters.PriceRange) == 2 {
		lo, hi := priceOf(r.Filters.PriceRange[0]), priceOf(r.Filters.PriceRange[1])
		if hi > 0 && lo > hi {
			return out, fmt.Errorf("price range min %.0f exceeds max %.0f", lo, hi)
		}
		out.Filters.PriceRange = []float64{lo, hi}
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%05.0f", x)
	}
	return ""
}

// intOf accepts a number, a numeric string or a [min, max] range (min is
// used)
func intOf(v any) *int {
	switch x := v.(type) {
	case float64:
		n := int(x)
		return &n
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(x), "%d", &n); err == nil {
			return &n
		}
	case []any:
		if len(x) > 0 {
			return intOf(x[0])
		}
	}
	return nil
}

func priceOf(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		return parsePrice(strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(x)))
	}
	return 0
}
