// Package eodhd queries the EODHD HTTP API (https://eodhd.com) and exposes
// its end-of-day, dividend, split, forex and exchange-calendar endpoints as
// a backfolio.MarketData.
package eodhd

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jfmartel/backfolio"
)

const defaultBaseURL = "https://eodhd.com/api"

// Client is a backfolio.MarketData backed by the EODHD API. Responses are
// cached on disk so repeated builds within a day do not re-query the API.
type Client struct {
	apiKey string
	base   string
	http   *http.Client
	log    zerolog.Logger

	mu            sync.Mutex
	exchangeCodes map[string]string // MIC -> EODHD exchange code
}

// Interface check.
var _ backfolio.MarketData = (*Client)(nil)

// New returns a client against the public API with daily response caching.
func New(apiKey string, log zerolog.Logger) *Client {
	return NewWithClient(apiKey, defaultBaseURL, newDailyCachingClient(), log)
}

// NewWithClient builds a client with an explicit base URL and HTTP client,
// mainly for tests against a local server.
func NewWithClient(apiKey, base string, hc *http.Client, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		base:   base,
		http:   hc,
		log:    log.With().Str("component", "eodhd").Logger(),
	}
}
