// Package oddsapi is the REST client for The Odds API (v4) and the decoder
// that normalizes its event payloads into domain matches.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

const provider = "oddsapi"

// ClientConfig holds the endpoint, credentials and fixed query parameters.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Regions    string
	Markets    string
	OddsFormat string
	Timeout    time.Duration
}

// Client fetches upcoming events with bookmaker prices.
type Client struct {
	baseURL    string
	apiKey     string
	regions    string
	markets    string
	oddsFormat string
	httpClient *http.Client
}

// NewClient creates a new odds API client.
//
// cfg.BaseURL is the API root, e.g. "https://api.the-odds-api.com/v4".
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		regions:    cfg.Regions,
		markets:    cfg.Markets,
		oddsFormat: cfg.OddsFormat,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetOdds issues a single GET for the given sport key ("upcoming" covers all
// in-season sports). Quota telemetry is returned even when the status is not
// successful, since the provider sends it on quota exhaustion too.
func (c *Client) GetOdds(ctx context.Context, sport string) ([]APIEvent, domain.Quota, error) {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("markets", c.markets)
	params.Set("oddsFormat", c.oddsFormat)
	params.Set("dateFormat", "iso")

	endpoint := fmt.Sprintf("%s/sports/%s/odds/?%s", c.baseURL, url.PathEscape(sport), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, noQuota(), domain.NewTransportError(provider, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, noQuota(), domain.NewTransportError(provider, err)
	}
	defer resp.Body.Close()

	quota := quotaFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, quota, domain.NewTransportError(provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, quota, domain.NewStatusError(provider, resp.StatusCode, body)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, quota, domain.NewDecodeError(provider, err)
	}

	return events, quota, nil
}

func noQuota() domain.Quota {
	return domain.Quota{Remaining: -1, Used: -1}
}

// quotaFromHeaders reads x-requests-remaining / x-requests-used; absent or
// malformed headers yield -1.
func quotaFromHeaders(h http.Header) domain.Quota {
	q := noQuota()
	if v, err := strconv.Atoi(h.Get("x-requests-remaining")); err == nil {
		q.Remaining = v
	}
	if v, err := strconv.Atoi(h.Get("x-requests-used")); err == nil {
		q.Used = v
	}
	return q
}
