package langchain

import (
	"context"
	"errors"
	"testing"

	"comment-extractor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestComplete(t *testing.T) {
	m := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        `{"comments":[]}`,
		StopReason:     "stop",
		GenerationInfo: map[string]any{"TotalTokens": 31},
	}}}}

	resp, err := New(m).Complete(context.Background(), entity.OracleRequest{
		ID:           "r1",
		Prompt:       "extract",
		SystemPrompt: "json only",
		Model:        entity.ModelConfig{Name: "m1", MaxTokens: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, `{"comments":[]}`, resp.Content)
	assert.Equal(t, 31, resp.TokensUsed)
	assert.Equal(t, "stop", resp.FinishReason)

	require.Len(t, m.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
	assert.Equal(t, "m1", m.opts.Model)
	assert.Equal(t, 100, m.opts.MaxTokens)
}

func TestComplete_Errors(t *testing.T) {
	_, err := New(&stubModel{err: errors.New("down")}).Complete(context.Background(), entity.OracleRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "down")

	_, err = New(&stubModel{resp: &llms.ContentResponse{}}).Complete(context.Background(), entity.OracleRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "no choices")
}
