// Package reasoning provides the OpenAI-backed collaborator that explains till
// discrepancies.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/analysis"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

// Config configures the OpenAI client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client implements analysis.Reasoner on top of the chat completions API.
type Client struct {
	client     openai.Client
	model      string
	timeout    time.Duration
	configured bool
	logger     *zap.Logger
}

// NewClient builds a reasoning client. Without an API key the client still constructs,
// and every call reports analysis.ErrUpstreamUnconfigured.
func NewClient(cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	// Retries belong to the caller; a failed analysis is surfaced as-is.
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client:     openai.NewClient(options...),
		model:      model,
		timeout:    timeout,
		configured: apiKey != "",
		logger:     logger,
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c != nil && c.configured
}

// Reason sends the prompt and returns the model's raw JSON text.
func (c *Client) Reason(ctx context.Context, prompt analysis.Prompt) (string, error) {
	if !c.Configured() {
		return "", analysis.ErrUpstreamUnconfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	completion, err := c.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("%w: credentials rejected (status %d)", analysis.ErrUpstreamUnconfigured, apiErr.StatusCode)
		}
		return "", fmt.Errorf("%w: %v", analysis.ErrUpstreamUnavailable, err)
	}

	c.logger.Debug("reasoning completion received",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("choices", len(completion.Choices)))

	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", fmt.Errorf("%w: completion carried no content", analysis.ErrUpstreamInvalidResponse)
}
