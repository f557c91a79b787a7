package analyzer

import (
	"testing"
	"time"

	"github.com/collabscope/collabscope/pkg/models"
)

func pairSchedule(teamName string, dates ...time.Time) models.TeamSchedule {
	s := models.TeamSchedule{TeamName: teamName}
	for _, d := range dates {
		s.Sessions = append(s.Sessions, models.ScheduleSession{Date: d, IsPaired: true})
	}
	return s
}

func chunkAt(author int64, at time.Time) models.Chunk {
	return models.Chunk{AuthorID: authorID(author), Timestamp: at}
}

func TestPairProgrammingNotApplicable(t *testing.T) {
	result := PairProgramming([]int64{1}, nil, nil)
	if result.Status != PairNotApplicable || result.Score != nil {
		t.Errorf("result = %+v, want NOT_APPLICABLE", result)
	}
	result = PairProgramming([]int64{1, 2, 3}, nil, nil)
	if result.Status != PairNotApplicable {
		t.Errorf("result = %+v, want NOT_APPLICABLE for trio", result)
	}
}

func TestPairProgrammingNotFound(t *testing.T) {
	result := PairProgramming([]int64{1, 2}, nil, nil)
	if result.Status != PairNotFound {
		t.Errorf("status = %s, want NOT_FOUND", result.Status)
	}
}

func TestPairProgrammingScore(t *testing.T) {
	s1 := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)
	s2 := time.Date(2025, 11, 10, 14, 0, 0, 0, time.UTC)
	schedule := pairSchedule("Team Alpha", s1, s2)

	chunks := []models.Chunk{
		chunkAt(1, s1.Add(2*time.Hour)),
		chunkAt(2, s1.Add(3*time.Hour)),
		chunkAt(1, s2.Add(time.Hour)),
		// author 2 absent on the second session day
	}

	result := PairProgramming([]int64{1, 2}, &schedule, chunks)
	if result.Status != PairFound {
		t.Fatalf("status = %s, want FOUND", result.Status)
	}
	if *result.Score != 50 {
		t.Errorf("score = %f, want 50", *result.Score)
	}
}

func TestPairProgrammingZeroScoreStillFound(t *testing.T) {
	s1 := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)
	schedule := pairSchedule("Team Alpha", s1)

	result := PairProgramming([]int64{1, 2}, &schedule, nil)
	if result.Status != PairFound {
		t.Fatalf("status = %s, want FOUND", result.Status)
	}
	if *result.Score != 0 {
		t.Errorf("score = %f, want 0", *result.Score)
	}
}

func TestPairProgrammingUTCDateProjection(t *testing.T) {
	// 23:30 UTC+2 on Nov 3 is 21:30 UTC the same day; 01:30 UTC+2 on
	// Nov 4 is 23:30 UTC Nov 3. Both land on the session date in UTC.
	zone := time.FixedZone("CEST", 2*3600)
	session := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)
	schedule := pairSchedule("Team Alpha", session)

	chunks := []models.Chunk{
		chunkAt(1, time.Date(2025, 11, 3, 23, 30, 0, 0, zone)),
		chunkAt(2, time.Date(2025, 11, 4, 1, 30, 0, 0, zone)),
	}

	result := PairProgramming([]int64{1, 2}, &schedule, chunks)
	if *result.Score != 100 {
		t.Errorf("score = %f, want 100 (UTC projection)", *result.Score)
	}
}

func TestScheduleIndexNormalizedLookup(t *testing.T) {
	idx := NewScheduleIndex([]models.TeamSchedule{
		pairSchedule("Team Alpha", time.Now()),
	})

	if _, ok := idx.Lookup("  TEAM   alpha "); !ok {
		t.Error("normalized lookup failed")
	}
	if _, ok := idx.Lookup("team\u00a0alpha"); !ok {
		t.Error("NBSP lookup failed")
	}
	if _, ok := idx.Lookup("team beta"); ok {
		t.Error("unexpected match for unknown team")
	}
}

func TestPairedCount(t *testing.T) {
	schedule := models.TeamSchedule{
		Sessions: []models.ScheduleSession{
			{IsPaired: true},
			{IsPaired: false},
			{IsPaired: true},
			{IsPaired: true},
		},
	}
	// Only the most recent 3 sessions count.
	if got := pairedCount(&schedule, 3); got != 2 {
		t.Errorf("pairedCount = %d, want 2", got)
	}
	if got := pairedCount(&schedule, 0); got != 3 {
		t.Errorf("pairedCount unlimited = %d, want 3", got)
	}
}
