package model

// QueryType classifies a chat message
type QueryType string

const (
	QueryGeneral          QueryType = "general"
	QueryPropertySearch   QueryType = "property_search"
	QueryPropertyDetail   QueryType = "property_detail"
	QueryMarketInfo       QueryType = "market_info"
	QueryLegal            QueryType = "legal"
	QueryPreferences      QueryType = "preferences"
	QueryTransitAmenities QueryType = "transit_amenities"
)

// Valid reports whether q is a known query type
func (q QueryType) Valid() bool {
	switch q {
	case QueryGeneral, QueryPropertySearch, QueryPropertyDetail, QueryMarketInfo,
		QueryLegal, QueryPreferences, QueryTransitAmenities:
		return true
	}
	return false
}

// PropertyFeatures are the listing constraints found in a query
type PropertyFeatures struct {
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	SquareFeet   *int     `json:"squareFeet,omitempty"`
	PropertyType string   `json:"propertyType,omitempty"`
	YearBuilt    *int     `json:"yearBuilt,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
}

// Proximity is a "near X" constraint
type Proximity struct {
	To       string  `json:"to,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// LocationFeatures are the place constraints found in a query
type LocationFeatures struct {
	City         string      `json:"city,omitempty"`
	Neighborhood string      `json:"neighborhood,omitempty"`
	ZipCode      string      `json:"zipCode,omitempty"`
	Proximity    []Proximity `json:"proximity,omitempty"`
}

// Filters are the price and preference filters found in a query
type Filters struct {
	Amenities  []string  `json:"amenities"`
	PriceRange []float64 `json:"priceRange,omitempty"`
	MinPrice   *float64  `json:"minPrice,omitempty"`
	MaxPrice   *float64  `json:"maxPrice,omitempty"`
	MustHave   []string  `json:"mustHave,omitempty"`
}

// FeatureExtraction is the structured reading of one chat message. It is
// sent to the assistant inside feature_context.
type FeatureExtraction struct {
	QueryType        QueryType        `json:"queryType"`
	PropertyFeatures PropertyFeatures `json:"propertyFeatures"`
	LocationFeatures LocationFeatures `json:"locationFeatures"`
	ExtractedZipCode string           `json:"extractedZipCode,omitempty"`
	ActionRequested  string           `json:"actionRequested,omitempty"`
	Filters          Filters          `json:"filters"`
	SortBy           string           `json:"sortBy,omitempty"`
	Source           string           `json:"source,omitempty"`
}

// Actions the assistant may be asked to perform
const (
	ActionShowListings    = "show_listings"
	ActionShowDetails     = "show_details"
	ActionShowRestaurants = "show_restaurants"
	ActionShowTransit     = "show_transit"
	ActionAnalyzeMarket   = "analyze_market"
	ActionShowAmenities   = "show_amenities"
	ActionShowRoute       = "show_route"
)
