package model

// UIContext is the compact description of what is on screen, sent with
// every chat message so the assistant can reference it.
type UIContext struct {
	SelectedProperty *SelectedPropertySummary `json:"selectedProperty"`
	PropertyDetails  *PropertyDetailsSummary  `json:"propertyDetails"`
	IsPropertyChat   bool                     `json:"isPropertyChat"`
	ZipCode          string                   `json:"zipCode"`
	ActiveTab        string                   `json:"activeTab"`
	PropertiesCount  int                      `json:"propertiesCount"`
	RestaurantCount  int                      `json:"restaurantCount"`
	TransitCount     int                      `json:"transitCount"`
	AgentCount       int                      `json:"agentCount"`
	HasMarketData    bool                     `json:"hasMarketData"`
	MarketLocation   string                   `json:"marketLocation,omitempty"`
	PropertyTabLinks map[string]string        `json:"propertyTabLinks,omitempty"`
}

// SelectedPropertySummary is the selected property as seen by the assistant
type SelectedPropertySummary struct {
	ID      string `json:"id,omitempty"`
	Address string `json:"address"`
	ZPID    string `json:"zpid"`
	Price   Number `json:"price"`
	Beds    Number `json:"beds"`
	Baths   Number `json:"baths"`
	Type    string `json:"type,omitempty"`
}

// TaxSummary is one year of tax history in the UI context
type TaxSummary struct {
	Year   int    `json:"year"`
	Amount Number `json:"amount"`
}

// PropertyDetailsSummary is the loaded property chat record as seen by
// the assistant
type PropertyDetailsSummary struct {
	Address    string       `json:"address"`
	Price      Number       `json:"price"`
	YearBuilt  int          `json:"yearBuilt,omitempty"`
	TaxHistory []TaxSummary `json:"taxHistory"`
}
