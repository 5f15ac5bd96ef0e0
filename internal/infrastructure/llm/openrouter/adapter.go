package openrouter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

var _ output.OracleTransport = (*OpenRouterAdapter)(nil)

type OpenRouterAdapter struct {
	client *openai.Client
	model  string
	stream bool
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Stream  bool
	Logger  output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://openrouter.ai/api/v1",
	}
}

const maxLoggedBody = 2048

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}
	body := string(bodyBytes)
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody] + "…"
	}
	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"bytes", len(bodyBytes),
		"body", body,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "error", err)
		return resp, err
	}
	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
	)
	return resp, nil
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	if cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{
				base:   http.DefaultTransport,
				logger: cfg.Logger,
			},
		}
	}

	return &OpenRouterAdapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		stream: cfg.Stream,
		logger: cfg.Logger,
	}
}

// Complete performs one chat completion. The request's model name overrides
// the adapter default when set.
func (a *OpenRouterAdapter) Complete(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error) {
	chatReq := a.convertRequest(req)
	if a.stream {
		return a.completeStream(ctx, req.ID, chatReq)
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &entity.OracleResponse{
		ID:           req.ID,
		Content:      choice.Message.Content,
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (a *OpenRouterAdapter) completeStream(ctx context.Context, id string, chatReq openai.ChatCompletionRequest) (*entity.OracleResponse, error) {
	chatReq.Stream = true
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := a.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}
	defer stream.Close()

	var (
		text   strings.Builder
		out    = &entity.OracleResponse{ID: id}
		chunks int
	)
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled: %w", ctx.Err())
		default:
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stream recv error: %w", err)
		}
		chunks++

		if chunk.Usage != nil {
			out.TokensUsed = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		text.WriteString(choice.Delta.Content)
		if choice.FinishReason != "" {
			out.FinishReason = string(choice.FinishReason)
		}
	}

	if a.logger != nil {
		a.logger.Debug("Stream completed", "chunks", chunks, "textLen", text.Len())
	}
	out.Content = text.String()
	return out, nil
}

func (a *OpenRouterAdapter) convertRequest(req entity.OracleRequest) openai.ChatCompletionRequest {
	model := a.model
	if req.Model.Name != "" {
		model = req.Model.Name
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Model.Temperature,
		MaxTokens:   req.Model.MaxTokens,
	}
}
