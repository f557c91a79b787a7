package models

import "testing"

func TestTokenTotalsMergeIdentity(t *testing.T) {
	x := TokenTotals{LLMCalls: 3, CallsWithUsage: 2, PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}
	if got := x.Merge(TokenTotals{}); got != x {
		t.Errorf("Merge with identity = %+v, want %+v", got, x)
	}
	if got := (TokenTotals{}).Merge(x); got != x {
		t.Errorf("identity Merge x = %+v, want %+v", got, x)
	}
}

func TestTokenTotalsMergeAssociative(t *testing.T) {
	a := TokenTotals{LLMCalls: 1, CallsWithUsage: 1, PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	b := TokenTotals{LLMCalls: 2, PromptTokens: 20, TotalTokens: 20}
	c := TokenTotals{LLMCalls: 4, CallsWithUsage: 3, CompletionTokens: 7, TotalTokens: 7}

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	if left != right {
		t.Errorf("merge not associative: %+v vs %+v", left, right)
	}
}

func TestTokenTotalsAdd(t *testing.T) {
	totals := TokenTotals{}
	totals = totals.Add(TokenUsage{Model: "m", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, UsageAvailable: true})
	totals = totals.Add(UnavailableUsage("m"))

	if totals.LLMCalls != 2 {
		t.Errorf("LLMCalls = %d, want 2", totals.LLMCalls)
	}
	if totals.CallsWithUsage != 1 {
		t.Errorf("CallsWithUsage = %d, want 1", totals.CallsWithUsage)
	}
	if totals.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", totals.TotalTokens)
	}
}
