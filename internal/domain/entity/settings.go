package entity

import "time"

// Settings holds every engine tunable.
type Settings struct {
	MaxDepth                   int           `json:"maxDepth" yaml:"maxDepth"`
	ChunkMaxTokens             int           `json:"chunkMaxTokens" yaml:"chunkMaxTokens"`
	ReserveRatio               float64       `json:"reserveRatio" yaml:"reserveRatio"`
	MinChunkSize               int           `json:"minChunkSize" yaml:"minChunkSize"`
	TextPreviewLength          int           `json:"textPreviewLength" yaml:"textPreviewLength"`
	MaxRetries                 int           `json:"maxRetries" yaml:"maxRetries"`
	HighConfidence             float64       `json:"highConfidence" yaml:"highConfidence"`
	MinConfidence              float64       `json:"minConfidence" yaml:"minConfidence"`
	UnchangedScrollThreshold   int           `json:"unchangedScrollThreshold" yaml:"unchangedScrollThreshold"`
	ZeroNewThreshold           int           `json:"zeroNewThreshold" yaml:"zeroNewThreshold"`
	MaxScrolls                 int           `json:"maxScrolls" yaml:"maxScrolls"`
	ScrollSettleDelay          time.Duration `json:"scrollSettleDelay" yaml:"scrollSettleDelay"`
	ReplyExpandTimeout         time.Duration `json:"replyExpandTimeout" yaml:"replyExpandTimeout"`
	ReplyPollInterval          time.Duration `json:"replyPollInterval" yaml:"replyPollInterval"`
	MaxReplyDepth              int           `json:"maxReplyDepth" yaml:"maxReplyDepth"`
	ProgressiveMaxIterations   int           `json:"progressiveMaxIterations" yaml:"progressiveMaxIterations"`
	ProgressiveMaxExpand       int           `json:"progressiveMaxExpand" yaml:"progressiveMaxExpand"`
	ProgressiveInitialDepth    int           `json:"progressiveInitialDepth" yaml:"progressiveInitialDepth"`
	MaxRunDuration             time.Duration `json:"maxRunDuration" yaml:"maxRunDuration"`
	CacheEnabled               bool          `json:"cacheEnabled" yaml:"cacheEnabled"`
	BackgroundConfigGeneration bool          `json:"backgroundConfigGeneration" yaml:"backgroundConfigGeneration"`
	Model                      ModelConfig   `json:"model" yaml:"model"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxDepth:                   10,
		ChunkMaxTokens:             6000,
		ReserveRatio:               0.2,
		MinChunkSize:               500,
		TextPreviewLength:          120,
		MaxRetries:                 3,
		HighConfidence:             0.9,
		MinConfidence:              0.3,
		UnchangedScrollThreshold:   3,
		ZeroNewThreshold:           3,
		MaxScrolls:                 50,
		ScrollSettleDelay:          1500 * time.Millisecond,
		ReplyExpandTimeout:         5 * time.Second,
		ReplyPollInterval:          250 * time.Millisecond,
		MaxReplyDepth:              3,
		ProgressiveMaxIterations:   10,
		ProgressiveMaxExpand:       3,
		ProgressiveInitialDepth:    4,
		MaxRunDuration:             5 * time.Minute,
		CacheEnabled:               true,
		BackgroundConfigGeneration: true,
		Model: ModelConfig{
			Temperature: 0,
			MaxTokens:   4096,
		},
	}
}

// WithDefaults fills zero values from DefaultSettings. Boolean switches are
// left as provided.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setDur := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&s.MaxDepth, d.MaxDepth)
	setInt(&s.ChunkMaxTokens, d.ChunkMaxTokens)
	setInt(&s.MinChunkSize, d.MinChunkSize)
	setInt(&s.TextPreviewLength, d.TextPreviewLength)
	setInt(&s.MaxRetries, d.MaxRetries)
	setInt(&s.UnchangedScrollThreshold, d.UnchangedScrollThreshold)
	setInt(&s.ZeroNewThreshold, d.ZeroNewThreshold)
	setInt(&s.MaxScrolls, d.MaxScrolls)
	setInt(&s.MaxReplyDepth, d.MaxReplyDepth)
	setInt(&s.ProgressiveMaxIterations, d.ProgressiveMaxIterations)
	setInt(&s.ProgressiveMaxExpand, d.ProgressiveMaxExpand)
	setInt(&s.ProgressiveInitialDepth, d.ProgressiveInitialDepth)
	setInt(&s.Model.MaxTokens, d.Model.MaxTokens)
	setFloat(&s.HighConfidence, d.HighConfidence)
	setFloat(&s.MinConfidence, d.MinConfidence)
	if s.ReserveRatio < 0 || s.ReserveRatio >= 1 {
		s.ReserveRatio = d.ReserveRatio
	}
	setDur(&s.ReplyExpandTimeout, d.ReplyExpandTimeout)
	setDur(&s.ReplyPollInterval, d.ReplyPollInterval)
	setDur(&s.MaxRunDuration, d.MaxRunDuration)
	if s.ScrollSettleDelay < 0 {
		s.ScrollSettleDelay = d.ScrollSettleDelay
	}
	return s
}
