package models

import "time"

// ReportFlag marks a condition a reviewer should look at.
type ReportFlag string

// Report flags derived from the CQI result and aggregate counters.
const (
	FlagLateWorkConcentration ReportFlag = "LATE_WORK_CONCENTRATION"
	FlagSoloContributor       ReportFlag = "SOLO_CONTRIBUTOR"
	FlagUnevenDistribution    ReportFlag = "UNEVEN_DISTRIBUTION"
	FlagHighTrivialRatio      ReportFlag = "HIGH_TRIVIAL_RATIO"
	FlagLowConfidenceRatings  ReportFlag = "LOW_CONFIDENCE_RATINGS"
	FlagAnalysisError         ReportFlag = "ANALYSIS_ERROR"
)

// AnalyzedChunk pairs a chunk with its rating and bookkeeping.
type AnalyzedChunk struct {
	Chunk
	Rating                EffortRating `json:"rating"`
	IsExternalContributor bool         `json:"is_external_contributor"`
	Usage                 TokenUsage   `json:"usage"`
}

// AuthorDetail summarizes one author's contribution inside a report.
type AuthorDetail struct {
	AuthorID     int64   `json:"author_id"`
	Email        string  `json:"email,omitempty"`
	ChunkCount   int     `json:"chunk_count"`
	LinesChanged int     `json:"lines_changed"`
	TotalEffort  float64 `json:"total_effort"`
	EffortShare  float64 `json:"effort_share"`
}

// AnalysisMetadata records how and when a report was produced.
type AnalysisMetadata struct {
	AnalyzedAt    time.Time   `json:"analyzed_at"`
	DurationMs    int64       `json:"duration_ms"`
	Model         string      `json:"model,omitempty"`
	AIEnabled     bool        `json:"ai_enabled"`
	TokenTotals   TokenTotals `json:"token_totals"`
	CommitsLoaded int         `json:"commits_loaded"`
}

// FairnessReport is the per-team analysis outcome.
type FairnessReport struct {
	TeamID               int64               `json:"team_id"`
	TeamName             string              `json:"team_name,omitempty"`
	BalanceScore         float64             `json:"balance_score"` // 0-100, equals CQI
	EffortByAuthor       map[int64]float64   `json:"effort_by_author"`
	EffortShareByAuthor  map[int64]float64   `json:"effort_share_by_author"`
	Flags                []ReportFlag        `json:"flags,omitempty"`
	RequiresManualReview bool                `json:"requires_manual_review"`
	AuthorDetails        []AuthorDetail      `json:"author_details,omitempty"`
	Metadata             AnalysisMetadata    `json:"metadata"`
	AnalyzedChunks       []AnalyzedChunk     `json:"analyzed_chunks,omitempty"`
	CQIResult            CQIResult           `json:"cqi_result"`
}

// HasFlag reports whether the given flag is set.
func (r *FairnessReport) HasFlag(f ReportFlag) bool {
	for _, set := range r.Flags {
		if set == f {
			return true
		}
	}
	return false
}

// AddFlag sets a flag once and marks the report for manual review.
func (r *FairnessReport) AddFlag(f ReportFlag) {
	if r.HasFlag(f) {
		return
	}
	r.Flags = append(r.Flags, f)
	r.RequiresManualReview = true
}
