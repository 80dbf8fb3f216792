package model

// ChatRequest is the payload sent to the assistant backend
type ChatRequest struct {
	Message         string `json:"message"`
	SessionID       string `json:"session_id,omitempty"`
	ZipCode         string `json:"zipCode,omitempty"`
	FeatureContext  string `json:"feature_context"`
	LocationContext string `json:"location_context"`
	IsSystemQuery   bool   `json:"is_system_query,omitempty"`
}

// ChatResponse is the assistant backend reply
type ChatResponse struct {
	SessionID         string             `json:"session_id"`
	Response          string             `json:"response"`
	ExtractedFeatures *FeatureExtraction `json:"extracted_features,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// FeatureContext is the JSON object carried in ChatRequest.FeatureContext
type FeatureContext struct {
	Features  *FeatureExtraction `json:"features,omitempty"`
	UIContext UIContext          `json:"ui_context"`
}

// LocationContext is the JSON object carried in ChatRequest.LocationContext
type LocationContext struct {
	ZipCode        string   `json:"zipCode,omitempty"`
	Restaurants    []string `json:"restaurants,omitempty"`
	Transit        []string `json:"transit,omitempty"`
	Agents         []string `json:"agents,omitempty"`
	MarketLocation string   `json:"marketLocation,omitempty"`
}
