package entity

type ModelConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"maxTokens" yaml:"maxTokens"`
}

type OracleRequest struct {
	ID           string      `json:"id"`
	Kind         string      `json:"kind,omitempty"`
	Prompt       string      `json:"prompt"`
	SystemPrompt string      `json:"systemPrompt,omitempty"`
	Model        ModelConfig `json:"model"`
}

type OracleResponse struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	TokensUsed   int    `json:"tokensUsed"`
	FinishReason string `json:"finishReason"`
}

// Oracle request kinds, used for logging and metrics.
const (
	OracleKindDetect      = "detect-container"
	OracleKindSelectors   = "discover-selectors"
	OracleKindExtract     = "extract-comments"
	OracleKindProgressive = "progressive"
)
