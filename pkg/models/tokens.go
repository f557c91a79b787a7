package models

// TokenUsage records the token cost of a single model call.
type TokenUsage struct {
	Model            string `json:"model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	UsageAvailable   bool   `json:"usage_available"`
}

// UnavailableUsage is used when the response carried no usage metadata.
func UnavailableUsage(model string) TokenUsage {
	return TokenUsage{Model: model}
}

// TokenTotals aggregates usage across calls. It forms a monoid under Merge
// with the zero value as identity.
type TokenTotals struct {
	LLMCalls         int64 `json:"llm_calls"`
	CallsWithUsage   int64 `json:"calls_with_usage"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Add folds one call's usage into the totals.
func (t TokenTotals) Add(u TokenUsage) TokenTotals {
	t.LLMCalls++
	if u.UsageAvailable {
		t.CallsWithUsage++
		t.PromptTokens += u.PromptTokens
		t.CompletionTokens += u.CompletionTokens
		t.TotalTokens += u.TotalTokens
	}
	return t
}

// Merge combines two totals. Associative; merging with the zero value is a
// no-op.
func (t TokenTotals) Merge(o TokenTotals) TokenTotals {
	return TokenTotals{
		LLMCalls:         t.LLMCalls + o.LLMCalls,
		CallsWithUsage:   t.CallsWithUsage + o.CallsWithUsage,
		PromptTokens:     t.PromptTokens + o.PromptTokens,
		CompletionTokens: t.CompletionTokens + o.CompletionTokens,
		TotalTokens:      t.TotalTokens + o.TotalTokens,
	}
}
