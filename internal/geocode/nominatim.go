package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoAddress is returned by Reverse when nothing is found at a point.
var ErrNoAddress = errors.New("no address found")

// Result holds a geocoding result.
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// Client is a Nominatim geocoding client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limit      int
}

// New creates a Nominatim geocoding client.
// userAgent is required by Nominatim's usage policy.
func New(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limit:      3,
	}
}

// Search geocodes a free-form query, biased toward Metro Manila.
// Returns an empty slice when nothing is found.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	u := c.baseURL + "/search?" + url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {strconv.Itoa(c.limit)},
		"countrycodes":   {"ph"},
		"viewbox":        {"120.90,14.35,121.15,14.80"}, // Metro Manila
		"bounded":        {"1"},
		"addressdetails": {"0"},
	}.Encode()

	var raw []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat: %w", err)
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon: %w", err)
		}
		results = append(results, Result{Lat: lat, Lon: lon, DisplayName: r.DisplayName})
	}
	return results, nil
}

// Reverse performs reverse geocoding: lat/lon → nearest address.
// Returns a short label (house number + road, or the first part of the
// display name).
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	u := c.baseURL + "/reverse?" + url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', 6, 64)},
		"format":         {"jsonv2"},
		"zoom":           {"18"}, // street-level
		"addressdetails": {"1"},
	}.Encode()

	var result struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			HouseNumber string `json:"house_number"`
			Road        string `json:"road"`
		} `json:"address"`
	}
	if err := c.get(ctx, u, &result); err != nil {
		return "", fmt.Errorf("nominatim reverse: %w", err)
	}

	if result.Address.Road != "" {
		if result.Address.HouseNumber != "" {
			return result.Address.HouseNumber + " " + result.Address.Road, nil
		}
		return result.Address.Road, nil
	}
	if result.DisplayName != "" {
		if i := strings.Index(result.DisplayName, ","); i > 0 {
			return result.DisplayName[:i], nil
		}
		return result.DisplayName, nil
	}
	return "", ErrNoAddress
}

func (c *Client) get(ctx context.Context, u string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
