package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmaxmax/go-sse"
	"google.golang.org/genai"

	"vibestack/internal/config"
	"vibestack/internal/models"
)

// Eino serves providers through cloudwego/eino chat models. Streams are
// re-encoded as OpenAI-format events so clients see one wire format.
type Eino struct {
	chatModel model.BaseChatModel
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEino builds the eino chat model for cfg.Provider.
func NewEino(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*Eino, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch cfg.Provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("new gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Model,
		})
	case "claude":
		var baseURL *string
		if cfg.BaseURL != "" {
			baseURL = &cfg.BaseURL
		}
		maxTokens := cfg.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 3000
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   baseURL,
			MaxTokens: maxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.Provider, err)
	}
	return NewEinoWithModel(chatModel, cfg.Model, timeout(cfg), logger), nil
}

// NewEinoWithModel wraps an already constructed chat model.
func NewEinoWithModel(chatModel model.BaseChatModel, modelName string, timeout time.Duration, logger *slog.Logger) *Eino {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Eino{
		chatModel: chatModel,
		modelName: modelName,
		timeout:   timeout,
		logger:    logger.With(slog.String("module", "eino")),
	}
}

func schemaMessages(messages []models.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		out = append(out, &schema.Message{Role: role, Content: msg.Content})
	}
	return out
}

func (e *Eino) Complete(ctx context.Context, messages []models.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.chatModel.Generate(ctx, schemaMessages(messages))
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return resp.Content, nil
}

func (e *Eino) Stream(ctx context.Context, messages []models.Message) (io.ReadCloser, error) {
	reader, err := e.chatModel.Stream(ctx, schemaMessages(messages))
	if err != nil {
		return nil, fmt.Errorf("generate stream: %w", err)
	}
	pr, pw := io.Pipe()
	go e.encode(reader, pw)
	return pr, nil
}

// encode writes every chunk as a chat.completion.chunk event and finishes
// with the [DONE] sentinel. A failed write means the reader went away.
func (e *Eino) encode(reader *schema.StreamReader[*schema.Message], pw *io.PipeWriter) {
	defer reader.Close()

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Error("stream receive failed", slog.String("err", err.Error()))
			pw.CloseWithError(fmt.Errorf("receive chunk: %w", err))
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		payload, err := json.Marshal(goopenai.ChatCompletionStreamResponse{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   e.modelName,
			Choices: []goopenai.ChatCompletionStreamChoice{{
				Index: 0,
				Delta: goopenai.ChatCompletionStreamChoiceDelta{
					Role:    goopenai.ChatMessageRoleAssistant,
					Content: chunk.Content,
				},
			}},
		})
		if err != nil {
			pw.CloseWithError(fmt.Errorf("marshal chunk: %w", err))
			return
		}
		if err := writeEvent(pw, string(payload)); err != nil {
			pw.CloseWithError(err)
			return
		}
	}
	if err := writeEvent(pw, "[DONE]"); err != nil {
		pw.CloseWithError(err)
		return
	}
	pw.Close()
}

func writeEvent(w io.Writer, data string) error {
	msg := sse.Message{}
	msg.AppendData(data)
	_, err := msg.WriteTo(w)
	return err
}
