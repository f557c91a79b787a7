package analyzer

import (
	"time"

	"github.com/collabscope/collabscope/pkg/models"
)

// PairStatus describes whether a pair-programming score could be computed.
type PairStatus string

// Pair-programming lookup outcomes.
const (
	PairNotApplicable PairStatus = "NOT_APPLICABLE" // team size != 2
	PairNotFound      PairStatus = "NOT_FOUND"      // no schedule entry for the team
	PairFound         PairStatus = "FOUND"          // score computable, possibly 0
)

// PairResult is the outcome of the attendance calculation.
type PairResult struct {
	Status PairStatus `json:"status"`
	Score  *float64   `json:"score,omitempty"` // 0-100, nil unless Status == FOUND
}

// ScheduleIndex resolves team schedules by normalized name.
type ScheduleIndex struct {
	byName map[string]*models.TeamSchedule
}

// NewScheduleIndex builds an index over the course schedules.
func NewScheduleIndex(schedules []models.TeamSchedule) *ScheduleIndex {
	idx := &ScheduleIndex{byName: make(map[string]*models.TeamSchedule, len(schedules))}
	for i := range schedules {
		idx.byName[models.NormalizeTeamName(schedules[i].TeamName)] = &schedules[i]
	}
	return idx
}

// Lookup finds a team's schedule, folding NBSP, whitespace and case.
func (idx *ScheduleIndex) Lookup(teamName string) (*models.TeamSchedule, bool) {
	s, ok := idx.byName[models.NormalizeTeamName(teamName)]
	return s, ok
}

// pairedCount counts paired sessions among the most recent keep sessions.
func pairedCount(schedule *models.TeamSchedule, keep int) int {
	sessions := schedule.Sessions
	if keep > 0 && len(sessions) > keep {
		sessions = sessions[len(sessions)-keep:]
	}
	count := 0
	for _, s := range sessions {
		if s.IsPaired {
			count++
		}
	}
	return count
}

// PairProgramming computes the fraction of paired sessions on which both
// team members committed. Only defined for teams of exactly two; memberIDs
// are the registered students' platform IDs.
func PairProgramming(memberIDs []int64, schedule *models.TeamSchedule, chunks []models.Chunk) PairResult {
	if len(memberIDs) != 2 {
		return PairResult{Status: PairNotApplicable}
	}
	if schedule == nil {
		return PairResult{Status: PairNotFound}
	}

	paired := schedule.PairedDates()
	if len(paired) == 0 {
		return PairResult{Status: PairNotFound}
	}

	// Calendar dates (UTC) on which each author committed.
	datesByAuthor := make(map[int64]map[string]bool)
	for _, chunk := range chunks {
		if chunk.AuthorID == nil {
			continue
		}
		day := utcDate(chunk.Timestamp)
		if datesByAuthor[*chunk.AuthorID] == nil {
			datesByAuthor[*chunk.AuthorID] = make(map[string]bool)
		}
		datesByAuthor[*chunk.AuthorID][day] = true
	}

	covered := 0
	for _, session := range paired {
		day := utcDate(session)
		if datesByAuthor[memberIDs[0]][day] && datesByAuthor[memberIDs[1]][day] {
			covered++
		}
	}

	score := 100 * float64(covered) / float64(len(paired))
	return PairResult{Status: PairFound, Score: &score}
}

// utcDate projects a timestamp to its UTC calendar date.
func utcDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
