// Package weather wraps the OpenWeather current-conditions API and turns a
// reading into a coarse run-suitability verdict.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is OpenWeather's current-conditions endpoint root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Run-suitability verdicts, from best to worst.
const (
	RunGood   = "good"
	RunFair   = "fair"
	RunPoor   = "poor"
	RunUnsafe = "unsafe"
)

// Conditions is the subset of an OpenWeather reading the app cares about,
// with the run verdict attached.
type Conditions struct {
	TempC       float64 `json:"tempC"`
	FeelsLikeC  float64 `json:"feelsLikeC"`
	Humidity    int     `json:"humidity"`
	WindMS      float64 `json:"windMs"`
	RainMMHour  float64 `json:"rainMmHour"`
	SnowMMHour  float64 `json:"snowMmHour"`
	Description string  `json:"description"`
	RunVerdict  string  `json:"runVerdict"`
}

// APIError is a non-200 answer from OpenWeather.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweather: status %d: %s", e.Status, e.Body)
}

// Client is a thin OpenWeather HTTP client, safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. baseURL falls back to DefaultBaseURL; logger
// may be nil.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.With("component", "weather"),
	}
}

// openWeatherResponse mirrors the fields we read from /weather.
type openWeatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
}

// Current fetches metric current conditions for the coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Conditions, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var raw openWeatherResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	cond := &Conditions{
		TempC:      raw.Main.Temp,
		FeelsLikeC: raw.Main.FeelsLike,
		Humidity:   raw.Main.Humidity,
		WindMS:     raw.Wind.Speed,
		RainMMHour: raw.Rain.OneHour,
		SnowMMHour: raw.Snow.OneHour,
	}
	if len(raw.Weather) > 0 {
		cond.Description = raw.Weather[0].Description
	}
	cond.RunVerdict = runVerdict(cond)
	return cond, nil
}

// runVerdict grades conditions for an outdoor run. Thresholds are coarse
// on purpose; the verdict is advice, not a gate.
func runVerdict(c *Conditions) string {
	switch {
	case c.FeelsLikeC <= -15 || c.FeelsLikeC >= 38 || c.WindMS >= 20:
		return RunUnsafe
	case c.FeelsLikeC <= -5 || c.FeelsLikeC >= 32 || c.RainMMHour >= 4 || c.SnowMMHour > 0 || c.WindMS >= 12:
		return RunPoor
	case c.FeelsLikeC <= 2 || c.FeelsLikeC >= 27 || c.RainMMHour > 0.5 || c.WindMS >= 8 || c.Humidity >= 90:
		return RunFair
	default:
		return RunGood
	}
}
