package domain

import "unicode/utf8"

const charsPerToken = 4

// HeuristicTokenCounter approximates token counts at four characters per token.
type HeuristicTokenCounter struct{}

// Count returns the approximate token count of text; non-empty text counts at least one token.
func (HeuristicTokenCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(1, n/charsPerToken)
}
