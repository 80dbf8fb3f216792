package model

// MarketTrends is the market summary for a zip code or city. Fields the
// view does not interpret are kept in Extra.
type MarketTrends struct {
	Location        string   `json:"location"`
	ZipCode         string   `json:"zipCode,omitempty"`
	MedianListPrice Number   `json:"medianListPrice,omitempty"`
	MedianSalePrice Number   `json:"medianSalePrice,omitempty"`
	PriceChangeYoY  float64  `json:"priceChangeYoY,omitempty"`
	DaysOnMarket    float64  `json:"daysOnMarket,omitempty"`
	Inventory       int      `json:"inventory,omitempty"`
	MarketType      string   `json:"marketType,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Highlights      []string `json:"highlights,omitempty"`
	Extra           JSONMap  `json:"extra,omitempty"`
}
