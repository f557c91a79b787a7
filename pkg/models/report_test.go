package models

import "testing"

func TestAddFlagSetsManualReview(t *testing.T) {
	report := FairnessReport{}
	if report.RequiresManualReview {
		t.Error("fresh report should not require review")
	}

	report.AddFlag(FlagUnevenDistribution)
	if !report.RequiresManualReview {
		t.Error("flagged report must require review")
	}
	if !report.HasFlag(FlagUnevenDistribution) {
		t.Error("flag not recorded")
	}

	// Adding twice keeps one entry.
	report.AddFlag(FlagUnevenDistribution)
	if len(report.Flags) != 1 {
		t.Errorf("flags = %v, want one entry", report.Flags)
	}
}
