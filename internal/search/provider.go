// Package search finds candidate web pages for a query.
package search

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderSerpAPI    = "serpapi"
	ProviderDuckDuckGo = "duckduckgo"

	// DefaultLimit is the number of results requested per query.
	DefaultLimit   = 5
	defaultTimeout = 10 * time.Second
)

// Provider runs a web search.
type Provider interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Result is a single ranked hit.
type Result struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Options controls a search call.
type Options struct {
	Limit int
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	APIURL   string
	Timeout  time.Duration
}

// NewProvider creates a search provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch cfg.Provider {
	case ProviderSerpAPI, "":
		return NewSerpAPIProvider(cfg.APIKey, cfg.APIURL, cfg.Timeout)
	case ProviderDuckDuckGo:
		return NewDuckDuckGoProvider(cfg.APIURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}

func limitOf(opts Options) int {
	if opts.Limit <= 0 {
		return DefaultLimit
	}
	return opts.Limit
}
