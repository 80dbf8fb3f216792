package service

import (
	"regexp"
	"strconv"
	"strings"

	"rebot/internal/model"
)

var (
	zipPattern        = regexp.MustCompile(`\b(\d{5})\b`)
	searchPattern     = regexp.MustCompile(`(?i)(find|search|looking for|properties|homes|houses|apartments)`)
	marketPattern     = regexp.MustCompile(`(?i)(market|trends|prices|appreciation|value)`)
	legalPattern      = regexp.MustCompile(`(?i)(legal|laws|regulations|taxes|tax|zoning)`)
	detailPattern     = regexp.MustCompile(`(?i)(details|more about|tell me about)`)
	bedroomPattern    = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|bedroom|br)`)
	bathroomPattern   = regexp.MustCompile(`(?i)(\d+)\s*(?:bath|bathroom|ba)`)
	sqftPattern       = regexp.MustCompile(`(?i)(\d+)\s*(?:sq\s*ft|square\s*feet|sqft)`)
	cityPattern       = regexp.MustCompile(`(?i)\b(?:in|near)\s+([A-Za-z\s.]+?)(?:\s+\d{5}|\s*$|\s+and|\s+near)`)
	listingsPattern   = regexp.MustCompile(`(?i)show\s+(?:me\s+)?(?:the\s+)?properties|find\s+(?:me\s+)?(?:a\s+)?home|looking\s+for\s+(?:a\s+)?(?:house|property|apartment|condo)`)
	analyzePattern    = regexp.MustCompile(`(?i)market|trends|price|appreciation`)
	priceRangePattern = regexp.MustCompile(`(?i)between\s+\$?(\d+[kK]?)\s+and\s+\$?(\d+[kK]?)`)
	maxPricePattern   = regexp.MustCompile(`(?i)(?:under|below|less than)\s+\$?(\d+[kK]?)`)
	cheapestPattern   = regexp.MustCompile(`(?i)cheapest|lowest price`)
	expensivePattern  = regexp.MustCompile(`(?i)expensive|luxury|high end`)
	newestPattern     = regexp.MustCompile(`(?i)newest|recent|new listing`)

	propertyTypes  = []string{"house", "apartment", "condo", "townhouse"}
	proximityTypes = []string{"school", "transit", "restaurant", "downtown", "park", "grocery", "hospital"}
)

// Sort orders a query may ask for
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// HeuristicFeatures reads features from a query with fixed patterns. It
// never fails and needs no network.
func HeuristicFeatures(query string) model.FeatureExtraction {
	out := model.FeatureExtraction{
		QueryType: model.QueryGeneral,
		Filters:   model.Filters{Amenities: []string{}},
		Source:    "heuristic",
	}
	lower := strings.ToLower(query)

	if m := zipPattern.FindStringSubmatch(query); m != nil {
		out.ExtractedZipCode = m[1]
	}

	switch {
	case searchPattern.MatchString(query):
		out.QueryType = model.QueryPropertySearch
	case marketPattern.MatchString(query):
		out.QueryType = model.QueryMarketInfo
	case legalPattern.MatchString(query):
		out.QueryType = model.QueryLegal
	case detailPattern.MatchString(query):
		out.QueryType = model.QueryPropertyDetail
	}

	out.PropertyFeatures.Bedrooms = firstInt(bedroomPattern, query)
	out.PropertyFeatures.Bathrooms = firstInt(bathroomPattern, query)
	out.PropertyFeatures.SquareFeet = firstInt(sqftPattern, query)
	// the last listed type that appears wins
	for _, t := range propertyTypes {
		if strings.Contains(lower, t) {
			out.PropertyFeatures.PropertyType = t
		}
	}

	if m := cityPattern.FindStringSubmatch(query); m != nil {
		out.LocationFeatures.City = strings.TrimSpace(m[1])
	}

	for _, t := range proximityTypes {
		if strings.Contains(lower, "near "+t) || strings.Contains(lower, "close to "+t) {
			out.LocationFeatures.Proximity = []model.Proximity{{To: t, Distance: 1, Unit: "miles"}}
			switch t {
			case "transit":
				out.ActionRequested = model.ActionShowTransit
			case "restaurant":
				out.ActionRequested = model.ActionShowRestaurants
			}
			break
		}
	}

	switch {
	case listingsPattern.MatchString(query):
		out.ActionRequested = model.ActionShowListings
	case analyzePattern.MatchString(query):
		out.ActionRequested = model.ActionAnalyzeMarket
	}

	if m := priceRangePattern.FindStringSubmatch(query); m != nil {
		out.Filters.PriceRange = []float64{parsePrice(m[1]), parsePrice(m[2])}
	} else if m := maxPricePattern.FindStringSubmatch(query); m != nil {
		out.Filters.PriceRange = []float64{0, parsePrice(m[1])}
	}

	switch {
	case cheapestPattern.MatchString(query):
		out.SortBy = SortPriceAsc
	case expensivePattern.MatchString(query):
		out.SortBy = SortPriceDesc
	case newestPattern.MatchString(query):
		out.SortBy = SortNewest
	}

	return out
}

func firstInt(re *regexp.Regexp, s string) *int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// parsePrice reads "450000" or "450k"
func parsePrice(s string) float64 {
	mult := 1.0
	if strings.HasSuffix(strings.ToLower(s), "k") {
		mult = 1000
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n * mult
}
