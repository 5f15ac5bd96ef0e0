package tokenizer

import "strings"

const lineSeparator = "\n"

// Options controls chunk sizing.
type Options struct {
	MaxTokens    int
	ReserveRatio float64
	MinChunkSize int
}

// Budget is the effective per-chunk token limit:
// MaxTokens*(1-ReserveRatio), never below MinChunkSize.
func (o Options) Budget() int {
	ratio := o.ReserveRatio
	if ratio < 0 || ratio >= 1 {
		ratio = 0
	}
	budget := int(float64(o.MaxTokens) * (1 - ratio))
	if budget < o.MinChunkSize {
		budget = o.MinChunkSize
	}
	if budget < 1 {
		budget = 1
	}
	return budget
}

// ChunkText splits text at line boundaries into pieces whose estimated cost
// stays within the budget. strings.Join(chunks, "\n") always equals text.
// A single line larger than the budget becomes its own chunk.
func ChunkText(text string, opts Options) []string {
	if strings.TrimSpace(text) == "" || EstimateTokens(text) <= opts.Budget() {
		return []string{text}
	}

	budget := opts.Budget()
	lines := strings.Split(text, lineSeparator)

	var (
		chunks  []string
		current []string
		used    int
	)
	for _, line := range lines {
		cost := EstimateTokens(line)
		if len(current) > 0 && used+cost > budget {
			chunks = append(chunks, strings.Join(current, lineSeparator))
			current = current[:0]
			used = 0
		}
		current = append(current, line)
		used += cost
	}
	chunks = append(chunks, strings.Join(current, lineSeparator))

	return chunks
}

// ChunkWithOverhead chunks payload after subtracting the estimated cost of a
// fixed overhead (a prompt template) from MaxTokens.
func ChunkWithOverhead(payload, overhead string, opts Options) []string {
	opts.MaxTokens -= EstimateTokens(overhead)
	return ChunkText(payload, opts)
}

// ChunkDomText chunks a rendered document outline with the given limits.
func ChunkDomText(domText string, maxTokens int, reserveRatio float64, minChunkSize int) []string {
	return ChunkText(domText, Options{
		MaxTokens:    maxTokens,
		ReserveRatio: reserveRatio,
		MinChunkSize: minChunkSize,
	})
}
