// Package tokenizer estimates model token cost of text and splits text into
// token-bounded chunks at line boundaries.
package tokenizer

import (
	"math"
	"unicode"
)

// Per-unit weights. CJK characters usually map to one or more tokens each,
// words to a little more than one, punctuation to roughly half.
const (
	cjkWeight         = 1.5
	wordWeight        = 1.3
	punctuationWeight = 0.5
)

// EstimateTokens returns the estimated token cost of text. Whitespace-only
// input costs 0; any other input costs at least 1.
func EstimateTokens(text string) int {
	var cjk, words, punct int
	inWord := false

	for _, r := range text {
		switch {
		case isCJK(r):
			cjk++
			inWord = false
		case unicode.IsSpace(r):
			inWord = false
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punct++
			inWord = false
		default:
			if !inWord {
				words++
				inWord = true
			}
		}
	}

	if cjk == 0 && words == 0 && punct == 0 {
		return 0
	}

	total := float64(cjk)*cjkWeight + float64(words)*wordWeight + float64(punct)*punctuationWeight
	n := int(math.Ceil(total))
	if n < 1 {
		n = 1
	}
	return n
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r) ||
		(r >= 0x3000 && r <= 0x303F) || // CJK punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // full-width forms
}
