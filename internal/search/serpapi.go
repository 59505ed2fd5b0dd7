package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultSerpAPIURL = "https://serpapi.com/search"

// SerpAPIProvider queries Google through SerpAPI.
type SerpAPIProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewSerpAPIProvider creates a SerpAPI provider.
func NewSerpAPIProvider(apiKey, apiURL string, timeout time.Duration) (*SerpAPIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("serpapi api key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultSerpAPIURL
	}
	return &SerpAPIProvider{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type serpResponse struct {
	OrganicResults []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

func (p *SerpAPIProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	limit := limitOf(opts)

	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse serpapi url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", query)
	q.Set("api_key", p.apiKey)
	q.Set("num", strconv.Itoa(limit))
	q.Set("engine", "google")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create serpapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("serpapi request failed with status %d", resp.StatusCode)
	}

	var decoded serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", decoded.Error)
	}

	results := make([]Result, 0, limit)
	for _, item := range decoded.OrganicResults {
		if item.Title == "" || item.Link == "" {
			continue
		}
		results = append(results, Result{Title: item.Title, URL: item.Link})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
