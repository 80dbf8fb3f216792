package model

// LocationResult is a nearby place returned by the places provider
type LocationResult struct {
	Title    string  `json:"title"`
	Address  string  `json:"address"`
	Distance float64 `json:"distance,omitempty"`
	Category string  `json:"category,omitempty"`
}

// LocationData groups the amenities, transit and agents for one zip code
type LocationData struct {
	ZipCode     string           `json:"zipCode"`
	Restaurants []LocationResult `json:"restaurants"`
	Transit     []LocationResult `json:"transit"`
	Agents      []Agent          `json:"agents"`
}

// Agent is a real estate agent listed for an area
type Agent struct {
	FullName          string  `json:"fullName"`
	BusinessName      string  `json:"businessName,omitempty"`
	EncodedZuid       string  `json:"encodedZuid,omitempty"`
	Location          string  `json:"location,omitempty"`
	PhoneNumber       string  `json:"phoneNumber,omitempty"`
	ProfileLink       string  `json:"profileLink,omitempty"`
	ProfilePhotoSrc   string  `json:"profilePhotoSrc,omitempty"`
	IsTeamLead        bool    `json:"isTeamLead"`
	IsTopAgent        bool    `json:"isTopAgent"`
	NumTotalReviews   int     `json:"numTotalReviews"`
	ReviewStarsRating float64 `json:"reviewStarsRating"`
	SaleCountLastYear int     `json:"saleCountLastYear"`
	SaleCountAllTime  int     `json:"saleCountAllTime"`
}
