package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rebot/internal/config"
	"rebot/internal/model"
)

// Place categories understood by the location endpoint
const (
	placeRestaurants = "Restaurants"
	placeTransit     = "Transit station"
)

// HTTPClient reads from the listing and neighbourhood data API
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewHTTPClient creates a client for the data API
func NewHTTPClient(cfg *config.ProvidersConfig, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Named("provider"),
	}
}

type placesResponse struct {
	Results []model.LocationResult `json:"results"`
	Error   string                 `json:"error"`
}

type agentsResponse struct {
	Agents []model.Agent `json:"agents"`
	Error  string        `json:"error"`
}

// LocationData fetches restaurants and transit in parallel. Agents are
// fetched alongside but are optional: a failure there is logged and
// leaves the list empty.
func (c *HTTPClient) LocationData(ctx context.Context, zipCode string) (*model.LocationData, error) {
	out := &model.LocationData{
		ZipCode:     zipCode,
		Restaurants: []model.LocationResult{},
		Transit:     []model.LocationResult{},
		Agents:      []model.Agent{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		places, err := c.places(gctx, zipCode, placeRestaurants)
		if err != nil {
			return err
		}
		out.Restaurants = places
		return nil
	})
	g.Go(func() error {
		places, err := c.places(gctx, zipCode, placeTransit)
		if err != nil {
			return err
		}
		out.Transit = places
		return nil
	})

	agents := make(chan []model.Agent, 1)
	go func() {
		var resp agentsResponse
		if err := c.post(ctx, "/api/agents", map[string]string{"location": zipCode, "zipCode": zipCode}, &resp); err != nil {
			c.log.Warn("agent search failed", zap.String("zip_code", zipCode), zap.Error(err))
		}
		agents <- resp.Agents
	}()

	err := g.Wait()
	if a := <-agents; a != nil {
		out.Agents = a
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) places(ctx context.Context, zipCode, kind string) ([]model.LocationResult, error) {
	var resp placesResponse
	if err := c.post(ctx, "/api/location", map[string]string{"zipCode": zipCode, "type": kind}, &resp); err != nil {
		return nil, fmt.Errorf("%s search: %w", kind, err)
	}
	if resp.Error != "" && len(resp.Results) == 0 {
		return nil, fmt.Errorf("%s search: %s", kind, resp.Error)
	}
	if resp.Results == nil {
		return []model.LocationResult{}, nil
	}
	return resp.Results, nil
}

// marketResponse is the summarized market page returned upstream
type marketResponse struct {
	LocationInfo struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Date string `json:"date"`
	} `json:"location_info"`
	MarketStatus struct {
		Temperature    string `json:"temperature"`
		Interpretation string `json:"interpretation"`
	} `json:"market_status"`
	SummaryMetrics struct {
		MedianRent          model.Number `json:"median_rent"`
		YearlyChangePercent float64      `json:"yearly_change_percent"`
		AvailableRentals    int          `json:"available_rentals"`
	} `json:"summary_metrics"`
	Error any `json:"error"`
}

// MarketTrends fetches the market summary for a zip code
func (c *HTTPClient) MarketTrends(ctx context.Context, zipCode string) (*model.MarketTrends, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "/api/market_trends", map[string]string{"zipCode": zipCode}, &raw); err != nil {
		return nil, fmt.Errorf("market trends: %w", err)
	}

	var resp marketResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode market trends: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("market trends: %v", resp.Error)
	}

	var extra model.JSONMap
	_ = json.Unmarshal(raw, &extra)

	trends := &model.MarketTrends{
		Location:        resp.LocationInfo.Name,
		ZipCode:         zipCode,
		MedianListPrice: resp.SummaryMetrics.MedianRent,
		PriceChangeYoY:  resp.SummaryMetrics.YearlyChangePercent,
		Inventory:       resp.SummaryMetrics.AvailableRentals,
		MarketType:      resp.MarketStatus.Temperature,
		Summary:         resp.MarketStatus.Interpretation,
		Extra:           extra,
	}
	if trends.Location == "" {
		trends.Location = zipCode
	}
	return trends, nil
}

type propertiesResponse struct {
	Results []model.PropertyRef `json:"results"`
	Error   string              `json:"error"`
}

// Properties lists the homes for sale in a zip code
func (c *HTTPClient) Properties(ctx context.Context, zipCode string) ([]model.PropertyRef, error) {
	var resp propertiesResponse
	if err := c.post(ctx, "/api/properties", map[string]string{"zipCode": zipCode}, &resp); err != nil {
		return nil, fmt.Errorf("property search: %w", err)
	}
	if resp.Error != "" && len(resp.Results) == 0 {
		return nil, fmt.Errorf("property search: %s", resp.Error)
	}
	for i := range resp.Results {
		if resp.Results[i].ID == "" {
			resp.Results[i].ID = resp.Results[i].ZPID
		}
	}
	if resp.Results == nil {
		return []model.PropertyRef{}, nil
	}
	return resp.Results, nil
}

type detailsResponse struct {
	Results *model.PropertyDetails `json:"results"`
	Error   string                 `json:"error"`
}

// PropertyDetails fetches the full record of one property
func (c *HTTPClient) PropertyDetails(ctx context.Context, zpid string) (*model.PropertyDetails, error) {
	var resp detailsResponse
	if err := c.post(ctx, "/api/property", map[string]string{"zpid": zpid}, &resp); err != nil {
		return nil, fmt.Errorf("property %s: %w", zpid, err)
	}
	if resp.Results == nil {
		if resp.Error != "" {
			return nil, fmt.Errorf("property %s: %s: %w", zpid, resp.Error, ErrNotFound)
		}
		return nil, fmt.Errorf("property %s: %w", zpid, ErrNotFound)
	}
	if resp.Results.BasicInfo.ZPID == "" {
		resp.Results.BasicInfo.ZPID = zpid
	}
	return resp.Results, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("data api replied",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
