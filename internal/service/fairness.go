// Package service binds the analysis pipeline for one team: load, chunk,
// pre-filter, rate, calculate, report.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/collabscope/collabscope/internal/analyzer"
	"github.com/collabscope/collabscope/internal/fanout"
	"github.com/collabscope/collabscope/internal/rater"
	"github.com/collabscope/collabscope/pkg/models"
)

// FairnessService produces a FairnessReport for one team repository.
type FairnessService struct {
	loader     *analyzer.CommitLoader
	chunker    *analyzer.CommitChunker
	prefilter  *analyzer.PreFilter
	rater      *rater.EffortRater
	calculator *analyzer.CQICalculator
	aiWorkers  int
	aiEnabled  bool
	model      string
}

// Option is a functional option for configuring FairnessService.
type Option func(*FairnessService)

// WithLoader overrides the commit loader.
func WithLoader(l *analyzer.CommitLoader) Option {
	return func(s *FairnessService) { s.loader = l }
}

// WithChunker overrides the commit chunker.
func WithChunker(c *analyzer.CommitChunker) Option {
	return func(s *FairnessService) { s.chunker = c }
}

// WithPreFilter overrides the pre-filter.
func WithPreFilter(f *analyzer.PreFilter) Option {
	return func(s *FairnessService) { s.prefilter = f }
}

// WithCalculator overrides the CQI calculator.
func WithCalculator(c *analyzer.CQICalculator) Option {
	return func(s *FairnessService) { s.calculator = c }
}

// WithAIWorkers caps the chunk-rating parallelism.
func WithAIWorkers(n int) Option {
	return func(s *FairnessService) {
		if n > 0 {
			s.aiWorkers = n
		}
	}
}

// WithAIEnabled records whether the rater may call the model. When false
// the calculator falls back to git-only scoring.
func WithAIEnabled(enabled bool) Option {
	return func(s *FairnessService) { s.aiEnabled = enabled }
}

// WithModel records the model id for report metadata.
func WithModel(model string) Option {
	return func(s *FairnessService) { s.model = model }
}

// New creates a fairness service around the given rater.
func New(effortRater *rater.EffortRater, opts ...Option) *FairnessService {
	s := &FairnessService{
		loader:     analyzer.NewCommitLoader(),
		chunker:    analyzer.NewCommitChunker(),
		prefilter:  analyzer.NewPreFilter(),
		rater:      effortRater,
		calculator: analyzer.NewCQICalculator(),
		aiWorkers:  4,
		aiEnabled:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TeamInput is everything the service needs to analyze one team.
type TeamInput struct {
	Participation models.TeamParticipation
	RepoPath      string
	AccessLog     []models.AccessLogEntry
	EmailMappings map[string]models.EmailMapping
	ProjectStart  time.Time
	ProjectEnd    time.Time
}

// AnalyzeTeam runs the full pipeline for one team. Chunk-level model
// failures degrade to error ratings; only repository-level failures
// surface as errors.
func (s *FairnessService) AnalyzeTeam(ctx context.Context, in TeamInput) (*models.FairnessReport, error) {
	started := time.Now()

	authorBySHA := make(map[string]int64, len(in.AccessLog))
	for _, entry := range in.AccessLog {
		authorBySHA[entry.CommitSHA] = entry.UserID
	}

	commits, err := s.loader.Load(ctx, in.RepoPath, authorBySHA)
	if err != nil {
		return nil, err
	}

	start, end := projectPeriod(in, commits)

	chunks := s.chunker.Chunk(commits)
	filtered := s.prefilter.Filter(chunks)

	rated, totals := s.rateAll(ctx, filtered.ChunksToAnalyze)
	s.resolveAuthors(rated, in)

	memberIDs := make([]int64, 0, len(in.Participation.Students))
	for _, student := range in.Participation.Students {
		memberIDs = append(memberIDs, student.ID)
	}

	result := s.calculator.Calculate(analyzer.CalcInput{
		RatedChunks:   rated,
		TeamSize:      len(in.Participation.Students),
		MemberIDs:     memberIDs,
		ProjectStart:  start,
		ProjectEnd:    end,
		FilterSummary: &filtered.Summary,
		TeamName:      in.Participation.TeamName,
	})

	report := s.buildReport(in, rated, result, totals, len(commits), started)
	return report, nil
}

// AnalyzeTeamGitOnly computes the partial, git-signal-only view of a
// team: the LoC-balance fallback score plus the components derivable
// without effort ratings. Used to show results before (or without) the
// model pass.
func (s *FairnessService) AnalyzeTeamGitOnly(ctx context.Context, in TeamInput) (models.CQIResult, error) {
	authorBySHA := make(map[string]int64, len(in.AccessLog))
	for _, entry := range in.AccessLog {
		authorBySHA[entry.CommitSHA] = entry.UserID
	}

	commits, err := s.loader.Load(ctx, in.RepoPath, authorBySHA)
	if err != nil {
		return models.CQIResult{}, err
	}

	start, end := projectPeriod(in, commits)

	chunks := s.chunker.Chunk(commits)
	filtered := s.prefilter.Filter(chunks)

	memberIDs := make([]int64, 0, len(in.Participation.Students))
	for _, student := range in.Participation.Students {
		memberIDs = append(memberIDs, student.ID)
	}

	result := s.calculator.CalculateFallback(filtered.ChunksToAnalyze,
		len(in.Participation.Students), &filtered.Summary)
	result.Components = s.calculator.CalculateGitOnlyComponents(
		filtered.ChunksToAnalyze, len(in.Participation.Students),
		start, end, in.Participation.TeamName, memberIDs)
	return result, nil
}

// projectPeriod resolves the analysis window: explicit bounds win, the
// commit range fills the gaps.
func projectPeriod(in TeamInput, commits []models.Commit) (time.Time, time.Time) {
	start, end := in.ProjectStart, in.ProjectEnd
	if start.IsZero() && len(commits) > 0 {
		start = commits[0].Timestamp
	}
	if end.IsZero() && len(commits) > 0 {
		end = commits[len(commits)-1].Timestamp
	}
	return start, end
}

// rateAll rates the surviving chunks in parallel, capped at aiWorkers,
// and accumulates token usage into team totals.
func (s *FairnessService) rateAll(ctx context.Context, chunks []models.Chunk) ([]models.AnalyzedChunk, models.TokenTotals) {
	var mu sync.Mutex
	totals := models.TokenTotals{}

	rated, _ := fanout.Map(ctx, chunks, s.aiWorkers,
		func(chunk models.Chunk) string { return chunk.SHA },
		func(ctx context.Context, chunk models.Chunk) (models.AnalyzedChunk, error) {
			rating, usage := s.rater.Rate(ctx, chunk)

			mu.Lock()
			totals = totals.Add(usage)
			mu.Unlock()

			return models.AnalyzedChunk{Chunk: chunk, Rating: rating, Usage: usage}, nil
		})

	return rated, totals
}

// resolveAuthors applies email mappings and flags external contributors.
// A chunk whose email maps to a registered student adopts that student's
// ID; everything else that matches no member email is external.
func (s *FairnessService) resolveAuthors(rated []models.AnalyzedChunk, in TeamInput) {
	members := in.Participation.MemberEmails()
	memberIDs := make(map[int64]bool, len(in.Participation.Students))
	for _, student := range in.Participation.Students {
		memberIDs[student.ID] = true
	}

	for i := range rated {
		chunk := &rated[i]
		email := models.NormalizeEmail(chunk.AuthorEmail)

		if chunk.AuthorID == nil {
			if id, ok := members[email]; ok {
				chunk.AuthorID = &id
			} else if mapping, ok := in.EmailMappings[email]; ok {
				id := mapping.StudentID
				chunk.AuthorID = &id
			}
		}

		if chunk.AuthorID != nil && memberIDs[*chunk.AuthorID] {
			continue
		}
		if _, ok := members[email]; ok {
			continue
		}
		chunk.IsExternalContributor = true
	}
}

func (s *FairnessService) buildReport(in TeamInput, rated []models.AnalyzedChunk, result models.CQIResult, totals models.TokenTotals, commitCount int, started time.Time) *models.FairnessReport {
	effortByAuthor := make(map[int64]float64)
	locByAuthor := make(map[int64]int)
	chunkCounts := make(map[int64]int)
	emailByAuthor := make(map[int64]string)

	for _, rc := range rated {
		if rc.IsExternalContributor || rc.AuthorID == nil {
			continue
		}
		id := *rc.AuthorID
		effortByAuthor[id] += rc.Rating.WeightedEffort()
		locByAuthor[id] += rc.TotalLinesChanged()
		chunkCounts[id]++
		if emailByAuthor[id] == "" {
			emailByAuthor[id] = rc.AuthorEmail
		}
	}

	shares := analyzer.EffortShares(effortByAuthor)

	report := &models.FairnessReport{
		TeamID:              in.Participation.ID,
		TeamName:            in.Participation.TeamName,
		BalanceScore:        result.CQI,
		EffortByAuthor:      effortByAuthor,
		EffortShareByAuthor: shares,
		AnalyzedChunks:      rated,
		CQIResult:           result,
		Metadata: models.AnalysisMetadata{
			AnalyzedAt:    started,
			DurationMs:    time.Since(started).Milliseconds(),
			Model:         s.model,
			AIEnabled:     s.aiEnabled,
			TokenTotals:   totals,
			CommitsLoaded: commitCount,
		},
	}

	for id, effort := range effortByAuthor {
		report.AuthorDetails = append(report.AuthorDetails, models.AuthorDetail{
			AuthorID:     id,
			Email:        emailByAuthor[id],
			ChunkCount:   chunkCounts[id],
			LinesChanged: locByAuthor[id],
			TotalEffort:  effort,
			EffortShare:  shares[id],
		})
	}

	deriveFlags(report, rated)
	return report
}

// deriveFlags maps penalties and aggregate counters onto report flags.
func deriveFlags(report *models.FairnessReport, rated []models.AnalyzedChunk) {
	for _, penalty := range report.CQIResult.Penalties {
		switch penalty.Kind {
		case models.PenaltySoloDevelopment:
			report.AddFlag(models.FlagSoloContributor)
			report.AddFlag(models.FlagUnevenDistribution)
		case models.PenaltySevereImbalance:
			report.AddFlag(models.FlagUnevenDistribution)
		case models.PenaltyHighTrivial:
			report.AddFlag(models.FlagHighTrivialRatio)
		case models.PenaltyLowConfidence:
			report.AddFlag(models.FlagLowConfidenceRatings)
		case models.PenaltyLateWork:
			report.AddFlag(models.FlagLateWorkConcentration)
		}
	}

	errorCount := 0
	for _, rc := range rated {
		if rc.Rating.IsError {
			errorCount++
		}
	}
	if len(rated) > 0 && errorCount == len(rated) {
		report.AddFlag(models.FlagAnalysisError)
	}
}

// ErrorReport builds the zero-scored report recorded when a team's
// analysis failed outright.
func ErrorReport(participation models.TeamParticipation, err error) *models.FairnessReport {
	reason := "analysis-error"
	if err != nil {
		reason = "analysis-error: " + err.Error()
	}
	report := &models.FairnessReport{
		TeamID:    participation.ID,
		TeamName:  participation.TeamName,
		CQIResult: models.ZeroCQI(reason),
		Metadata: models.AnalysisMetadata{
			AnalyzedAt: time.Now(),
		},
	}
	report.AddFlag(models.FlagAnalysisError)
	return report
}
