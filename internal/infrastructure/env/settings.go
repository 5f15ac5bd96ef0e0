package env

import (
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

// Prefix of every engine setting variable.
const Prefix = "EXTRACTOR_"

// ApplySettings overlays EXTRACTOR_* variables on s. Unset variables keep
// the value from s.
func ApplySettings(cfg output.ConfigPort, s entity.Settings) entity.Settings {
	s.MaxDepth = cfg.GetInt(Prefix+"MAX_DEPTH", s.MaxDepth)
	s.ChunkMaxTokens = cfg.GetInt(Prefix+"CHUNK_MAX_TOKENS", s.ChunkMaxTokens)
	s.ReserveRatio = cfg.GetFloat(Prefix+"RESERVE_RATIO", s.ReserveRatio)
	s.MinChunkSize = cfg.GetInt(Prefix+"MIN_CHUNK_SIZE", s.MinChunkSize)
	s.TextPreviewLength = cfg.GetInt(Prefix+"TEXT_PREVIEW_LENGTH", s.TextPreviewLength)
	s.MaxRetries = cfg.GetInt(Prefix+"MAX_RETRIES", s.MaxRetries)
	s.HighConfidence = cfg.GetFloat(Prefix+"HIGH_CONFIDENCE", s.HighConfidence)
	s.MinConfidence = cfg.GetFloat(Prefix+"MIN_CONFIDENCE", s.MinConfidence)
	s.UnchangedScrollThreshold = cfg.GetInt(Prefix+"UNCHANGED_SCROLL_THRESHOLD", s.UnchangedScrollThreshold)
	s.ZeroNewThreshold = cfg.GetInt(Prefix+"ZERO_NEW_THRESHOLD", s.ZeroNewThreshold)
	s.MaxScrolls = cfg.GetInt(Prefix+"MAX_SCROLLS", s.MaxScrolls)
	s.ScrollSettleDelay = cfg.GetDuration(Prefix+"SCROLL_SETTLE_DELAY", s.ScrollSettleDelay)
	s.ReplyExpandTimeout = cfg.GetDuration(Prefix+"REPLY_EXPAND_TIMEOUT", s.ReplyExpandTimeout)
	s.ReplyPollInterval = cfg.GetDuration(Prefix+"REPLY_POLL_INTERVAL", s.ReplyPollInterval)
	s.MaxReplyDepth = cfg.GetInt(Prefix+"MAX_REPLY_DEPTH", s.MaxReplyDepth)
	s.ProgressiveMaxIterations = cfg.GetInt(Prefix+"PROGRESSIVE_MAX_ITERATIONS", s.ProgressiveMaxIterations)
	s.ProgressiveMaxExpand = cfg.GetInt(Prefix+"PROGRESSIVE_MAX_EXPAND", s.ProgressiveMaxExpand)
	s.ProgressiveInitialDepth = cfg.GetInt(Prefix+"PROGRESSIVE_INITIAL_DEPTH", s.ProgressiveInitialDepth)
	s.MaxRunDuration = cfg.GetDuration(Prefix+"MAX_RUN_DURATION", s.MaxRunDuration)
	s.CacheEnabled = cfg.GetBool(Prefix+"CACHE_ENABLED", s.CacheEnabled)
	s.BackgroundConfigGeneration = cfg.GetBool(Prefix+"BACKGROUND_CONFIG_GENERATION", s.BackgroundConfigGeneration)

	s.Model.Name = cfg.GetWithDefault(Prefix+"MODEL", s.Model.Name)
	s.Model.Temperature = float32(cfg.GetFloat(Prefix+"TEMPERATURE", float64(s.Model.Temperature)))
	s.Model.MaxTokens = cfg.GetInt(Prefix+"MODEL_MAX_TOKENS", s.Model.MaxTokens)
	return s
}
