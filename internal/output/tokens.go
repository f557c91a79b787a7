package output

import (
	"fmt"
	"unicode/utf8"

	"github.com/collabscope/collabscope/pkg/models"
)

// CharsPerToken is the approximate character-to-token ratio for
// code-heavy prompts.
const CharsPerToken = 4.0

// EstimateTokens returns an approximate token count for the given text:
// its rune count divided by CharsPerToken, rounded to the nearest integer.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	runeCount := utf8.RuneCountInString(text)
	return int(float64(runeCount)/CharsPerToken + 0.5)
}

// FormatTokenCount formats a token count for display.
// Counts >= 1000 are formatted as "X.Xk".
func FormatTokenCount(tokens int64) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// FormatTokenTotals summarizes a team's model usage for display.
func FormatTokenTotals(t models.TokenTotals) string {
	if t.LLMCalls == 0 {
		return "no model calls"
	}
	return fmt.Sprintf("%d calls (%d with usage), %s prompt + %s completion = %s tokens",
		t.LLMCalls, t.CallsWithUsage,
		FormatTokenCount(t.PromptTokens),
		FormatTokenCount(t.CompletionTokens),
		FormatTokenCount(t.TotalTokens))
}
