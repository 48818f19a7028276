package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"vibestack/internal/config"
	"vibestack/internal/models"
)

const maxErrorBody = 64 << 10

// OpenAI calls an OpenAI-compatible chat completions endpoint (Poe by default).
type OpenAI struct {
	provider  string
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration

	client     *goopenai.Client
	httpClient *http.Client

	logger *slog.Logger
}

// NewOpenAI returns a client for cfg. httpClient may be nil.
func NewOpenAI(cfg config.AIConfig, httpClient *http.Client, logger *slog.Logger) *OpenAI {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = httpClient

	return &OpenAI{
		provider:   providerLabel(cfg.Provider),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		maxTokens:  cfg.MaxTokens,
		timeout:    timeout(cfg),
		client:     goopenai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		logger:     logger.With(slog.String("module", "openai")),
	}
}

func providerLabel(provider string) string {
	switch provider {
	case "", "poe":
		return "Poe"
	default:
		return provider
	}
}

func openAIMessages(messages []models.Message) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return msgs
}

func (o *OpenAI) request(messages []models.Message, stream bool) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  openAIMessages(messages),
		MaxTokens: o.maxTokens,
		Stream:    stream,
	}
}

// Complete is a wrapper around the chat completion API.
func (o *OpenAI) Complete(ctx context.Context, messages []models.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages, false))
	if err != nil {
		return "", o.upstreamError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: o.provider, StatusCode: http.StatusOK, Body: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) upstreamError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: o.provider, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		body := reqErr.HTTPStatus
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &UpstreamError{Provider: o.provider, StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return fmt.Errorf("send request: %w", err)
}

// Stream posts a streaming request and hands back the raw response body.
// Nothing is parsed here so the bytes can be relayed as they arrive.
func (o *OpenAI) Stream(ctx context.Context, messages []models.Message) (io.ReadCloser, error) {
	payload, err := json.Marshal(o.request(messages, true))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		o.logger.Error("upstream rejected stream request",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, &UpstreamError{
			Provider:   o.provider,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp.Body, nil
}
