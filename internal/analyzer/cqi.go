package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/collabscope/collabscope/pkg/models"
	"github.com/collabscope/collabscope/pkg/stats"
)

// Early-return reasons for zero-scored results.
const (
	ReasonSingleContributor = "single-contributor"
	ReasonNoProductiveWork  = "no-productive-work"
	ReasonNoPairProgramming = "no-pair-programming"
)

// Penalty thresholds.
const (
	soloShareThreshold     = 0.85
	severeShareThreshold   = 0.70
	trivialRatioThreshold  = 0.50
	lowConfidenceValue     = 0.6
	lowConfidenceShare     = 0.40
	lateWindowFraction     = 0.20
	lateEffortThreshold    = 0.50
	ownershipAuthorCap     = 4
	significantFileCommits = 3
)

// Weights holds the component weights used by the calculator.
type Weights struct {
	Effort          float64
	Loc             float64
	Temporal        float64
	Ownership       float64
	PairProgramming float64
}

// DefaultWeights returns the shipped component weights.
func DefaultWeights() Weights {
	return Weights{
		Effort:          models.WeightEffort,
		Loc:             models.WeightLoc,
		Temporal:        models.WeightTemporal,
		Ownership:       models.WeightOwnership,
		PairProgramming: models.WeightPairProgramming,
	}
}

// CQICalculator aggregates per-author effort and git signals into the
// collaboration quality index.
type CQICalculator struct {
	weights          Weights
	penaltiesEnabled bool
	schedule         *ScheduleIndex
	minPairedNeeded  int
	sessionsToKeep   int
}

// CQIOption is a functional option for configuring CQICalculator.
type CQIOption func(*CQICalculator)

// WithWeights overrides the component weights.
func WithWeights(w Weights) CQIOption {
	return func(c *CQICalculator) {
		c.weights = w
	}
}

// WithPenaltiesEnabled controls whether penalties affect the final score.
// The penalty structure is computed and returned either way.
func WithPenaltiesEnabled(enabled bool) CQIOption {
	return func(c *CQICalculator) {
		c.penaltiesEnabled = enabled
	}
}

// WithScheduleIndex attaches the course attendance schedule.
func WithScheduleIndex(idx *ScheduleIndex) CQIOption {
	return func(c *CQICalculator) {
		c.schedule = idx
	}
}

// WithSessionsToKeep sets how many recent sessions count for attendance.
func WithSessionsToKeep(n int) CQIOption {
	return func(c *CQICalculator) {
		if n > 0 {
			c.sessionsToKeep = n
		}
	}
}

// NewCQICalculator creates a calculator with default weights, penalties
// enabled and no schedule.
func NewCQICalculator(opts ...CQIOption) *CQICalculator {
	c := &CQICalculator{
		weights:          DefaultWeights(),
		penaltiesEnabled: true,
		minPairedNeeded:  2,
		sessionsToKeep:   3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CalcInput bundles the per-team inputs to Calculate.
type CalcInput struct {
	RatedChunks   []models.AnalyzedChunk
	TeamSize      int
	MemberIDs     []int64
	ProjectStart  time.Time
	ProjectEnd    time.Time
	FilterSummary *models.FilterSummary
	TeamName      string
}

// Calculate produces the full CQI breakdown for one team.
func (c *CQICalculator) Calculate(in CalcInput) models.CQIResult {
	if in.TeamSize <= 1 {
		return c.zero(ReasonSingleContributor, in.FilterSummary)
	}
	if len(in.RatedChunks) == 0 {
		return c.zero(ReasonNoProductiveWork, in.FilterSummary)
	}

	// Attendance policy: a known team that paired fewer than two of the
	// counted sessions scores zero outright.
	if c.schedule != nil && in.TeamName != "" {
		if sched, ok := c.schedule.Lookup(in.TeamName); ok {
			if pairedCount(sched, c.sessionsToKeep) < c.minPairedNeeded {
				return c.zero(ReasonNoPairProgramming, in.FilterSummary)
			}
		}
	}

	agg := aggregate(in.RatedChunks)
	if len(agg.effortByAuthor) <= 1 {
		return c.zero(ReasonSingleContributor, in.FilterSummary)
	}

	components := models.ComponentScores{
		EffortBalance:   100 * (1 - stats.Gini(mapValues(agg.effortByAuthor))),
		LocBalance:      100 * (1 - stats.Gini(mapValues(agg.locByAuthor))),
		TemporalSpread:  temporalSpread(in.RatedChunks, in.ProjectStart, in.ProjectEnd),
		OwnershipSpread: ownershipSpread(chunksOf(in.RatedChunks), in.TeamSize),
	}

	pair := c.pairComponent(in)
	if pair != nil {
		components.PairProgramming = pair
	}

	weights := models.ComponentWeights{
		Effort:    c.weights.Effort,
		Loc:       c.weights.Loc,
		Temporal:  c.weights.Temporal,
		Ownership: c.weights.Ownership,
	}

	base := c.weights.Effort*components.EffortBalance +
		c.weights.Loc*components.LocBalance +
		c.weights.Temporal*components.TemporalSpread +
		c.weights.Ownership*components.OwnershipSpread
	if pair != nil {
		base += c.weights.PairProgramming * (*pair)
		w := c.weights.PairProgramming
		weights.PairProgramming = &w
	}
	// The optional fifth weight can push the raw sum past 100.
	base = clampScore(base)

	penalties := c.computePenalties(in, agg)
	multiplier := 1.0
	for _, p := range penalties {
		multiplier *= p.Multiplier
	}

	cqi := base
	if c.penaltiesEnabled {
		cqi = clampScore(base * multiplier)
	}

	return models.CQIResult{
		CQI:               cqi,
		Components:        components,
		Weights:           weights,
		Penalties:         penalties,
		BaseScore:         base,
		PenaltyMultiplier: multiplier,
		FilterSummary:     in.FilterSummary,
	}
}

// CalculateFallback computes LoC balance alone when the LLM is
// unavailable; the result's CQI equals the LoC component.
func (c *CQICalculator) CalculateFallback(chunks []models.Chunk, teamSize int, filterSummary *models.FilterSummary) models.CQIResult {
	if teamSize <= 1 {
		return c.zero(ReasonSingleContributor, filterSummary)
	}

	locByAuthor := make(map[int64]float64)
	for _, chunk := range chunks {
		if chunk.AuthorID == nil {
			continue
		}
		locByAuthor[*chunk.AuthorID] += float64(chunk.TotalLinesChanged())
	}
	if len(locByAuthor) <= 1 {
		return c.zero(ReasonSingleContributor, filterSummary)
	}

	locBalance := 100 * (1 - stats.Gini(mapValues(locByAuthor)))
	return models.CQIResult{
		CQI:               locBalance,
		Components:        models.ComponentScores{LocBalance: locBalance},
		Weights:           models.ComponentWeights{Loc: 1},
		BaseScore:         locBalance,
		PenaltyMultiplier: 1,
		FilterSummary:     filterSummary,
	}
}

// CalculateGitOnlyComponents computes the components derivable without
// effort ratings, used to show partial results before the LLM finishes.
func (c *CQICalculator) CalculateGitOnlyComponents(chunks []models.Chunk, teamSize int, projectStart, projectEnd time.Time, teamName string, memberIDs []int64) models.ComponentScores {
	locByAuthor := make(map[int64]float64)
	for _, chunk := range chunks {
		if chunk.AuthorID == nil {
			continue
		}
		locByAuthor[*chunk.AuthorID] += float64(chunk.TotalLinesChanged())
	}

	components := models.ComponentScores{
		LocBalance:      100 * (1 - stats.Gini(mapValues(locByAuthor))),
		TemporalSpread:  temporalSpreadRaw(chunks, projectStart, projectEnd),
		OwnershipSpread: ownershipSpread(chunks, teamSize),
	}

	if c.schedule != nil && teamName != "" {
		if sched, ok := c.schedule.Lookup(teamName); ok {
			if result := PairProgramming(memberIDs, sched, chunks); result.Status == PairFound {
				components.PairProgramming = result.Score
			}
		}
	}
	return components
}

func (c *CQICalculator) zero(reason string, summary *models.FilterSummary) models.CQIResult {
	result := models.ZeroCQI(reason)
	result.Weights = models.ComponentWeights{
		Effort:    c.weights.Effort,
		Loc:       c.weights.Loc,
		Temporal:  c.weights.Temporal,
		Ownership: c.weights.Ownership,
	}
	result.FilterSummary = summary
	return result
}

func (c *CQICalculator) pairComponent(in CalcInput) *float64 {
	if c.schedule == nil || in.TeamName == "" {
		return nil
	}
	sched, ok := c.schedule.Lookup(in.TeamName)
	if !ok {
		return nil
	}
	result := PairProgramming(in.MemberIDs, sched, chunksOf(in.RatedChunks))
	if result.Status != PairFound {
		return nil
	}
	return result.Score
}

// aggregation holds the per-author and per-rating tallies the score and
// penalty rules both draw from.
type aggregation struct {
	effortByAuthor map[int64]float64
	locByAuthor    map[int64]float64
	totalEffort    float64
	trivialCount   int
	lowConfidence  int
	ratedCount     int
}

// aggregate tallies rated chunks by author. External-contributor chunks
// and chunks without an author mapping stay out of the balance figures.
func aggregate(rated []models.AnalyzedChunk) aggregation {
	agg := aggregation{
		effortByAuthor: make(map[int64]float64),
		locByAuthor:    make(map[int64]float64),
	}
	for _, rc := range rated {
		agg.ratedCount++
		if rc.Rating.Label == models.LabelTrivial {
			agg.trivialCount++
		}
		if !rc.Rating.IsError && rc.Rating.Confidence < lowConfidenceValue {
			agg.lowConfidence++
		}

		if rc.IsExternalContributor || rc.AuthorID == nil {
			continue
		}
		effort := rc.Rating.WeightedEffort()
		agg.effortByAuthor[*rc.AuthorID] += effort
		agg.locByAuthor[*rc.AuthorID] += float64(rc.TotalLinesChanged())
		agg.totalEffort += effort
	}
	return agg
}

// EffortShares converts per-author effort into shares summing to 1.
func EffortShares(effortByAuthor map[int64]float64) map[int64]float64 {
	var total float64
	for _, e := range effortByAuthor {
		total += e
	}
	shares := make(map[int64]float64, len(effortByAuthor))
	if total == 0 {
		// Degenerate: split evenly so the shares still sum to 1.
		for id := range effortByAuthor {
			shares[id] = 1 / float64(len(effortByAuthor))
		}
		return shares
	}
	for id, e := range effortByAuthor {
		shares[id] = e / total
	}
	return shares
}

func (c *CQICalculator) computePenalties(in CalcInput, agg aggregation) []models.Penalty {
	var penalties []models.Penalty

	shares := EffortShares(agg.effortByAuthor)
	var maxShare float64
	var maxAuthor int64
	for id, share := range shares {
		if share > maxShare {
			maxShare = share
			maxAuthor = id
		}
	}

	switch {
	case maxShare > soloShareThreshold:
		penalties = append(penalties, models.Penalty{
			Kind:       models.PenaltySoloDevelopment,
			Multiplier: 0,
			Reason:     fmt.Sprintf("author %d carries %.0f%% of the effort", maxAuthor, 100*maxShare),
		})
	case maxShare > severeShareThreshold:
		penalties = append(penalties, models.Penalty{
			Kind:       models.PenaltySevereImbalance,
			Multiplier: 0.7,
			Reason:     fmt.Sprintf("author %d carries %.0f%% of the effort", maxAuthor, 100*maxShare),
		})
	}

	if agg.ratedCount > 0 {
		trivialRatio := float64(agg.trivialCount) / float64(agg.ratedCount)
		if trivialRatio > trivialRatioThreshold {
			penalties = append(penalties, models.Penalty{
				Kind:       models.PenaltyHighTrivial,
				Multiplier: 0.85,
				Reason:     fmt.Sprintf("%.0f%% of chunks rated trivial", 100*trivialRatio),
			})
		}

		confShare := float64(agg.lowConfidence) / float64(agg.ratedCount)
		if confShare > lowConfidenceShare {
			penalties = append(penalties, models.Penalty{
				Kind:       models.PenaltyLowConfidence,
				Multiplier: 0.9,
				Reason:     fmt.Sprintf("%.0f%% of ratings below confidence %.1f", 100*confShare, lowConfidenceValue),
			})
		}
	}

	if lateRatio, ok := lateEffortRatio(in.RatedChunks, in.ProjectStart, in.ProjectEnd); ok && lateRatio > lateEffortThreshold {
		penalties = append(penalties, models.Penalty{
			Kind:       models.PenaltyLateWork,
			Multiplier: 0.8,
			Reason:     fmt.Sprintf("%.0f%% of effort in the final %.0f%% of the project", 100*lateRatio, 100*lateWindowFraction),
		})
	}

	return penalties
}

// lateEffortRatio returns the share of weighted effort landing in the
// final window of the project period.
func lateEffortRatio(rated []models.AnalyzedChunk, start, end time.Time) (float64, bool) {
	if !end.After(start) {
		return 0, false
	}
	period := end.Sub(start)
	cutoff := end.Add(-time.Duration(float64(period) * lateWindowFraction))

	var total, late float64
	for _, rc := range rated {
		effort := rc.Rating.WeightedEffort()
		total += effort
		if !rc.Timestamp.Before(cutoff) {
			late += effort
		}
	}
	if total == 0 {
		return 0, false
	}
	return late / total, true
}

// temporalSpread scores how evenly weighted effort spreads across weekly
// buckets of the project period.
func temporalSpread(rated []models.AnalyzedChunk, start, end time.Time) float64 {
	weights := make([]weightedAt, 0, len(rated))
	for _, rc := range rated {
		weights = append(weights, weightedAt{at: rc.Timestamp, weight: rc.Rating.WeightedEffort()})
	}
	return bucketSpread(weights, start, end)
}

// temporalSpreadRaw is the git-only variant using line counts as weight.
func temporalSpreadRaw(chunks []models.Chunk, start, end time.Time) float64 {
	weights := make([]weightedAt, 0, len(chunks))
	for _, chunk := range chunks {
		weights = append(weights, weightedAt{at: chunk.Timestamp, weight: float64(chunk.TotalLinesChanged())})
	}
	return bucketSpread(weights, start, end)
}

type weightedAt struct {
	at     time.Time
	weight float64
}

func bucketSpread(weights []weightedAt, start, end time.Time) float64 {
	if len(weights) == 0 || !end.After(start) {
		return 50
	}

	days := end.Sub(start).Hours() / 24
	numBuckets := int(math.Ceil(days / 7))
	if numBuckets < 1 {
		numBuckets = 1
	}

	buckets := make([]float64, numBuckets)
	period := end.Sub(start)
	for _, w := range weights {
		if w.at.Before(start) || w.at.After(end) {
			continue
		}
		idx := int(float64(numBuckets) * float64(w.at.Sub(start)) / float64(period))
		if idx >= numBuckets {
			idx = numBuckets - 1
		}
		buckets[idx] += w.weight
	}

	cv, ok := stats.CoefficientOfVariation(buckets)
	if !ok {
		return 50
	}
	return 100 * (1 - math.Min(cv/2, 1))
}

// ownershipSpread scores how many authors touch the files that matter.
// Only files with at least three commits count; teams larger than four
// are capped.
func ownershipSpread(chunks []models.Chunk, teamSize int) float64 {
	fileAuthors := make(map[string]map[int64]bool)
	fileCommits := make(map[string]int)

	for _, chunk := range chunks {
		for _, f := range chunk.Files {
			fileCommits[f.Path]++
			if chunk.AuthorID == nil {
				continue
			}
			if fileAuthors[f.Path] == nil {
				fileAuthors[f.Path] = make(map[int64]bool)
			}
			fileAuthors[f.Path][*chunk.AuthorID] = true
		}
	}

	effective := teamSize
	if effective > ownershipAuthorCap {
		effective = ownershipAuthorCap
	}

	var significant []string
	for path, count := range fileCommits {
		if count >= significantFileCommits {
			significant = append(significant, path)
		}
	}
	if len(significant) == 0 {
		return 75
	}
	sort.Strings(significant)

	var sum float64
	for _, path := range significant {
		authors := len(fileAuthors[path])
		if authors > effective {
			authors = effective
		}
		sum += float64(authors)
	}
	return 100 * sum / (float64(len(significant)) * float64(effective))
}

func clampScore(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

func mapValues(m map[int64]float64) []float64 {
	values := make([]float64, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}

func chunksOf(rated []models.AnalyzedChunk) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(rated))
	for _, rc := range rated {
		chunks = append(chunks, rc.Chunk)
	}
	return chunks
}
