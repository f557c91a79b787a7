package analyzer

import (
	"testing"
	"time"

	"github.com/collabscope/collabscope/pkg/models"
)

var (
	projectStart = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	projectEnd   = projectStart.AddDate(0, 0, 35) // five weeks
)

func ratedChunk(author int64, at time.Time, effort, complexity, novelty float64, label models.ChangeLabel, confidence float64, files ...string) models.AnalyzedChunk {
	if len(files) == 0 {
		files = []string{"src/app.go"}
	}
	fcs := make([]models.FileChange, len(files))
	for i, f := range files {
		fcs[i] = models.FileChange{Path: f, AddedLines: 20}
	}
	return models.AnalyzedChunk{
		Chunk: models.Chunk{
			AuthorID:    authorID(author),
			AuthorEmail: "x@example.com",
			Timestamp:   at,
			Files:       fcs,
			LinesAdded:  20 * len(files),
			TotalChunks: 1,
		},
		Rating: models.EffortRating{
			EffortScore: effort,
			Complexity:  complexity,
			Novelty:     novelty,
			Label:       label,
			Confidence:  confidence,
		},
	}
}

// balancedTeam builds the perfectly balanced two-member team of the
// first end-to-end scenario: four equal chunks each, six days apart, all
// files shared.
func balancedTeam() []models.AnalyzedChunk {
	var rated []models.AnalyzedChunk
	for i := 0; i < 4; i++ {
		at := projectStart.AddDate(0, 0, i*6+1)
		rated = append(rated,
			ratedChunk(1, at, 8, 8, 8, models.LabelFeature, 0.9, "src/app.go", "src/core.go"),
			ratedChunk(2, at.Add(2*time.Hour), 8, 8, 8, models.LabelFeature, 0.9, "src/app.go", "src/core.go"),
		)
	}
	return rated
}

func TestPerfectBalanceScoresHigh(t *testing.T) {
	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  balancedTeam(),
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})

	if result.BaseScore < 80 {
		t.Errorf("base score = %f, want >= 80", result.BaseScore)
	}
	if result.CQI < 80 {
		t.Errorf("CQI = %f, want >= 80", result.CQI)
	}
	if len(result.Penalties) != 0 {
		t.Errorf("penalties = %+v, want none", result.Penalties)
	}
	if result.Components.EffortBalance != 100 {
		t.Errorf("effort balance = %f, want 100", result.Components.EffortBalance)
	}
}

func TestSoloContributorScoresZero(t *testing.T) {
	var rated []models.AnalyzedChunk
	for i := 0; i < 10; i++ {
		rated = append(rated, ratedChunk(1, projectStart.AddDate(0, 0, i*3), 9, 7, 6, models.LabelFeature, 0.9))
	}
	rated = append(rated, ratedChunk(2, projectStart.AddDate(0, 0, 15), 2, 2, 2, models.LabelTrivial, 0.8))

	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  rated,
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})

	var solo bool
	for _, p := range result.Penalties {
		if p.Kind == models.PenaltySoloDevelopment {
			solo = true
			if p.Multiplier != 0 {
				t.Errorf("solo multiplier = %f, want 0", p.Multiplier)
			}
		}
	}
	if !solo {
		t.Error("SOLO_DEVELOPMENT penalty did not fire")
	}
	if result.CQI != 0 {
		t.Errorf("CQI = %f, want 0", result.CQI)
	}
}

func TestLateDumpPenalty(t *testing.T) {
	var rated []models.AnalyzedChunk
	// Small early work by A.
	for i := 0; i < 4; i++ {
		rated = append(rated, ratedChunk(1, projectStart.AddDate(0, 0, i*6), 2, 2, 2, models.LabelFeature, 0.9))
	}
	// Large chunks in the final 12 hours.
	for i := 0; i < 4; i++ {
		rated = append(rated, ratedChunk(1, projectEnd.Add(-time.Duration(i+1)*time.Hour), 9, 9, 9, models.LabelFeature, 0.9))
	}
	// One small chunk by B at the deadline.
	rated = append(rated, ratedChunk(2, projectEnd, 2, 2, 2, models.LabelFeature, 0.9))

	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  rated,
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})

	var late bool
	for _, p := range result.Penalties {
		if p.Kind == models.PenaltyLateWork {
			late = true
		}
	}
	if !late {
		t.Errorf("LATE_WORK did not fire; penalties = %+v", result.Penalties)
	}
}

func TestSingleContributorTeamAlwaysZero(t *testing.T) {
	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  balancedTeam(),
		TeamSize:     1,
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})
	if result.CQI != 0 || result.Reason != ReasonSingleContributor {
		t.Errorf("result = %f/%s", result.CQI, result.Reason)
	}
}

func TestEmptyChunksScoreZero(t *testing.T) {
	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		TeamSize:     2,
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})
	if result.CQI != 0 || result.Reason != ReasonNoProductiveWork {
		t.Errorf("result = %f/%s", result.CQI, result.Reason)
	}
}

func TestSingleEffectiveAuthorScoresZero(t *testing.T) {
	rated := []models.AnalyzedChunk{
		ratedChunk(1, projectStart.AddDate(0, 0, 5), 8, 8, 8, models.LabelFeature, 0.9),
	}
	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  rated,
		TeamSize:     2,
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})
	if result.CQI != 0 {
		t.Errorf("CQI = %f, want 0 for one distinct author", result.CQI)
	}
}

func TestAttendanceOverrideZeroesScore(t *testing.T) {
	schedule := models.TeamSchedule{
		TeamName: "Team Alpha",
		Sessions: []models.ScheduleSession{
			{Date: projectStart, IsPaired: true},
			{Date: projectStart.AddDate(0, 0, 7), IsPaired: false},
			{Date: projectStart.AddDate(0, 0, 14), IsPaired: false},
		},
	}
	calc := NewCQICalculator(WithScheduleIndex(NewScheduleIndex([]models.TeamSchedule{schedule})))

	result := calc.Calculate(CalcInput{
		RatedChunks:  balancedTeam(),
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
		TeamName:     "Team Alpha",
	})
	if result.CQI != 0 || result.Reason != ReasonNoPairProgramming {
		t.Errorf("result = %f/%s, want attendance override", result.CQI, result.Reason)
	}
}

func TestPenaltiesDisabledStillReported(t *testing.T) {
	var rated []models.AnalyzedChunk
	for i := 0; i < 10; i++ {
		rated = append(rated, ratedChunk(1, projectStart.AddDate(0, 0, i*3), 9, 7, 6, models.LabelFeature, 0.9))
	}
	rated = append(rated, ratedChunk(2, projectStart.AddDate(0, 0, 15), 2, 2, 2, models.LabelTrivial, 0.8))

	calc := NewCQICalculator(WithPenaltiesEnabled(false))
	result := calc.Calculate(CalcInput{
		RatedChunks:  rated,
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})

	if len(result.Penalties) == 0 {
		t.Error("penalty structure must be computed even when disabled")
	}
	if result.CQI != result.BaseScore {
		t.Errorf("CQI = %f, want base %f with penalties disabled", result.CQI, result.BaseScore)
	}
}

func TestHighTrivialPenalty(t *testing.T) {
	var rated []models.AnalyzedChunk
	for i := 0; i < 6; i++ {
		author := int64(1 + i%2)
		rated = append(rated, ratedChunk(author, projectStart.AddDate(0, 0, i*5), 3, 3, 3, models.LabelTrivial, 0.9))
	}
	for i := 0; i < 4; i++ {
		author := int64(1 + i%2)
		rated = append(rated, ratedChunk(author, projectStart.AddDate(0, 0, i*7), 8, 8, 8, models.LabelFeature, 0.9))
	}

	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  rated,
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})

	var fired bool
	for _, p := range result.Penalties {
		if p.Kind == models.PenaltyHighTrivial {
			fired = true
			if p.Multiplier != 0.85 {
				t.Errorf("multiplier = %f, want 0.85", p.Multiplier)
			}
		}
	}
	if !fired {
		t.Errorf("HIGH_TRIVIAL did not fire; penalties = %+v", result.Penalties)
	}
}

func TestLowConfidencePenalty(t *testing.T) {
	var rated []models.AnalyzedChunk
	for i := 0; i < 5; i++ {
		author := int64(1 + i%2)
		rated = append(rated, ratedChunk(author, projectStart.AddDate(0, 0, i*6), 7, 6, 6, models.LabelFeature, 0.4))
	}
	for i := 0; i < 5; i++ {
		author := int64(1 + i%2)
		rated = append(rated, ratedChunk(author, projectStart.AddDate(0, 0, i*6+2), 7, 6, 6, models.LabelFeature, 0.9))
	}

	calc := NewCQICalculator()
	result := calc.Calculate(CalcInput{
		RatedChunks:  rated,
		TeamSize:     2,
		MemberIDs:    []int64{1, 2},
		ProjectStart: projectStart,
		ProjectEnd:   projectEnd,
	})

	var fired bool
	for _, p := range result.Penalties {
		if p.Kind == models.PenaltyLowConfidence {
			fired = true
		}
	}
	if !fired {
		t.Errorf("LOW_CONFIDENCE did not fire; penalties = %+v", result.Penalties)
	}
}

func TestCQIAlwaysInRange(t *testing.T) {
	inputs := [][]models.AnalyzedChunk{
		balancedTeam(),
		{ratedChunk(1, projectStart, 10, 10, 10, models.LabelFeature, 1),
			ratedChunk(2, projectEnd, 1, 1, 1, models.LabelTrivial, 0)},
	}
	calc := NewCQICalculator()
	for _, rated := range inputs {
		result := calc.Calculate(CalcInput{
			RatedChunks:  rated,
			TeamSize:     2,
			MemberIDs:    []int64{1, 2},
			ProjectStart: projectStart,
			ProjectEnd:   projectEnd,
		})
		if result.CQI < 0 || result.CQI > 100 {
			t.Errorf("CQI = %f out of range", result.CQI)
		}
		for _, comp := range []float64{
			result.Components.EffortBalance,
			result.Components.LocBalance,
			result.Components.TemporalSpread,
			result.Components.OwnershipSpread,
		} {
			if comp < 0 || comp > 100 {
				t.Errorf("component = %f out of range", comp)
			}
		}
	}
}

func TestEffortSharesSumToOne(t *testing.T) {
	shares := EffortShares(map[int64]float64{1: 12.5, 2: 7.5, 3: 30})
	var sum float64
	for _, s := range shares {
		sum += s
	}
	if diff := sum - 1; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("shares sum = %f, want 1", sum)
	}
}

func TestCalculateFallback(t *testing.T) {
	chunks := []models.Chunk{
		{AuthorID: authorID(1), LinesAdded: 100},
		{AuthorID: authorID(2), LinesAdded: 100},
	}
	calc := NewCQICalculator()
	result := calc.CalculateFallback(chunks, 2, nil)
	if result.CQI != 100 {
		t.Errorf("fallback CQI = %f, want 100 for equal LoC", result.CQI)
	}
	if result.Components.LocBalance != result.CQI {
		t.Error("fallback CQI must equal the LoC component")
	}
}

func TestCalculateGitOnlyComponents(t *testing.T) {
	chunks := []models.Chunk{
		{AuthorID: authorID(1), LinesAdded: 100, Timestamp: projectStart.AddDate(0, 0, 3),
			Files: []models.FileChange{{Path: "a.go"}}},
		{AuthorID: authorID(2), LinesAdded: 100, Timestamp: projectStart.AddDate(0, 0, 17),
			Files: []models.FileChange{{Path: "a.go"}}},
	}
	calc := NewCQICalculator()
	components := calc.CalculateGitOnlyComponents(chunks, 2, projectStart, projectEnd, "", nil)
	if components.EffortBalance != 0 {
		t.Errorf("git-only effort balance = %f, want 0", components.EffortBalance)
	}
	if components.LocBalance != 100 {
		t.Errorf("git-only loc balance = %f, want 100", components.LocBalance)
	}
}

func TestOwnershipSpreadNoSignificantFiles(t *testing.T) {
	chunks := []models.Chunk{
		{AuthorID: authorID(1), Files: []models.FileChange{{Path: "a.go"}}},
	}
	if got := ownershipSpread(chunks, 2); got != 75 {
		t.Errorf("ownership with no significant files = %f, want 75", got)
	}
}

func TestTemporalSpreadNeutralOnEmpty(t *testing.T) {
	if got := bucketSpread(nil, projectStart, projectEnd); got != 50 {
		t.Errorf("empty temporal spread = %f, want 50", got)
	}
}
