// Package llm wraps an OpenAI-compatible chat-completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

const provider = "llm"

// ClientConfig configures the endpoint and sampling parameters.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client sends single-turn prompts and returns the reply text.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient creates a client. BaseURL may point at any OpenAI-compatible
// API root such as "https://api.openai.com/v1".
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: requestTemperature(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// requestTemperature maps t onto the wire value. go-openai omits a zero
// temperature from the request, which lets the endpoint apply its own
// default, so 0 is sent as the smallest positive float32.
func requestTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as the only user message and returns the first
// choice's content. No retry is attempted.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{Provider: provider, Kind: domain.FailureEmpty, Err: domain.ErrNoChoices}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps go-openai errors onto a ProviderError.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewStatusError(provider, apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe := domain.NewStatusError(provider, reqErr.HTTPStatusCode, nil)
		if pe.Err == nil {
			pe.Err = reqErr.Err
		}
		return pe
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.NewDecodeError(provider, err)
	}

	return domain.NewTransportError(provider, err)
}
