// Package langchain is an oracle transport over any langchaingo model.
package langchain

import (
	"context"
	"fmt"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var _ output.OracleTransport = (*Adapter)(nil)

type Adapter struct {
	model llms.Model
}

func New(model llms.Model) *Adapter {
	return &Adapter{model: model}
}

// NewOpenAICompatible builds an adapter over an OpenAI compatible endpoint.
func NewOpenAICompatible(apiKey, model, baseURL string) (*Adapter, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}
	return New(llm), nil
}

func (a *Adapter) Complete(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Model.Temperature))}
	if req.Model.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.Model.MaxTokens))
	}
	if req.Model.Name != "" {
		opts = append(opts, llms.WithModel(req.Model.Name))
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &entity.OracleResponse{
		ID:           req.ID,
		Content:      choice.Content,
		TokensUsed:   totalTokens(choice.GenerationInfo),
		FinishReason: choice.StopReason,
	}, nil
}

func totalTokens(info map[string]any) int {
	switch v := info["TotalTokens"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
