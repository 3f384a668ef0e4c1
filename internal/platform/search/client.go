// Package search queries a keyless web-search provider (DuckDuckGo's HTML
// endpoint) and extracts title/body snippets from the result page.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

const provider = "search"

// Snippet is one search hit.
type Snippet struct {
	Title string
	Body  string
}

// ClientConfig holds the endpoint and request settings.
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches and parses result pages.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new search client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search returns up to max snippets for query in provider order. Sponsored
// results and hits with neither a title nor a body are skipped.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Snippet, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, domain.NewTransportError(provider, fmt.Errorf("create request: %w", err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransportError(provider, fmt.Errorf("read response: %w", err))
	}

	// DuckDuckGo answers throttled clients with 202 and an anomaly page.
	if resp.StatusCode == http.StatusAccepted {
		return nil, &domain.ProviderError{
			Provider:   provider,
			Kind:       domain.FailureRateLimited,
			StatusCode: resp.StatusCode,
			Err:        domain.ErrRateLimited,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewStatusError(provider, resp.StatusCode, body)
	}

	snippets, err := ParseResults(bytes.NewReader(body), max)
	if err != nil {
		return nil, domain.NewDecodeError(provider, err)
	}
	return snippets, nil
}

// ParseResults extracts up to max snippets from a result page.
func ParseResults(r io.Reader, max int) ([]Snippet, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Snippet
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(out) >= max {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		sn := Snippet{
			Title: collapse(s.Find(".result__a").First().Text()),
			Body:  collapse(s.Find(".result__snippet").First().Text()),
		}
		if sn.Title == "" && sn.Body == "" {
			return true
		}
		out = append(out, sn)
		return true
	})
	return out, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
