// Package llm talks to the upstream chat completion provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"vibestack/internal/config"
	"vibestack/internal/models"
)

const (
	DefaultAnalyzePrompt = "You are a helpful assistant. Provide concise and clear answers."
	DefaultChatPrompt    = "You are a smart assistant. Always answer the user in their own language.\n" +
		"You can help the user answer questions, analyze content and give suggestions."

	defaultTimeout = 60 * time.Second
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("POE_API_KEY not configured")

// Completer produces chat completions.
type Completer interface {
	// Complete returns the full assistant reply.
	Complete(ctx context.Context, messages []models.Message) (string, error)
	// Stream returns an OpenAI-format event stream body. The caller closes it.
	Stream(ctx context.Context, messages []models.Message) (io.ReadCloser, error)
}

// UpstreamError reports a non-success response from the provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Body)
}

// New builds the completer for cfg.Provider. Without an API key the
// returned completer fails every call with ErrNotConfigured.
func New(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Completer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("no api key configured, AI routes will fail", slog.String("provider", cfg.Provider))
		return unconfigured{}, nil
	}
	switch cfg.Provider {
	case "", "poe":
		return NewOpenAI(cfg, nil, logger), nil
	case "openai", "claude", "gemini":
		return NewEino(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
	}
}

// AnalyzeMessages builds the one-shot analyze conversation.
func AnalyzeMessages(prompt, text, imageURL string) []models.Message {
	if prompt == "" {
		prompt = DefaultAnalyzePrompt
	}
	if imageURL != "" {
		text = text + "\n\nImage: " + imageURL
	}
	return []models.Message{
		{Role: models.RoleSystem, Content: prompt},
		{Role: models.RoleUser, Content: text},
	}
}

// ChatMessages builds a chat conversation from prior history and the new
// user text. History entries with unknown roles are dropped.
func ChatMessages(prompt string, history []models.Message, text string) []models.Message {
	if prompt == "" {
		prompt = DefaultChatPrompt
	}
	msgs := make([]models.Message, 0, len(history)+2)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: prompt})
	for _, m := range history {
		if !m.Role.Valid() {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, models.Message{Role: models.RoleUser, Content: text})
}

func timeout(cfg config.AIConfig) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

type unconfigured struct{}

func (unconfigured) Complete(context.Context, []models.Message) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) Stream(context.Context, []models.Message) (io.ReadCloser, error) {
	return nil, ErrNotConfigured
}
