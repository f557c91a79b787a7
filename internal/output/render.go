package output

import (
	"fmt"
	"strings"

	"github.com/collabscope/collabscope/pkg/models"
)

// TeamsTable builds the per-team results table for one exercise.
func TeamsTable(exerciseID int64, teams []models.TeamParticipation) *Table {
	rows := make([][]string, 0, len(teams))
	for _, team := range teams {
		cqi := "-"
		if team.CQI != nil {
			cqi = fmt.Sprintf("%.1f", *team.CQI)
		}
		suspicious := ""
		if team.IsSuspicious {
			suspicious = "yes"
		}
		rows = append(rows, []string{
			team.TeamName,
			fmt.Sprintf("%d", len(team.Students)),
			cqi,
			suspicious,
		})
	}
	return NewTable(
		fmt.Sprintf("Exercise %d — team results", exerciseID),
		[]string{"Team", "Members", "CQI", "Review"},
		rows,
		teams,
	)
}

// StatusTable builds the one-row status view of an exercise.
func StatusTable(status models.AnalysisStatus) *Table {
	row := []string{
		string(status.State),
		fmt.Sprintf("%d/%d", status.ProcessedTeams, status.TotalTeams),
		status.CurrentTeamName,
		string(status.CurrentStage),
	}
	return NewTable(
		fmt.Sprintf("Exercise %d", status.ExerciseID),
		[]string{"State", "Progress", "Current Team", "Stage"},
		[][]string{row},
		status,
	)
}

// ReportTable builds the detail view of one team's fairness report.
func ReportTable(report *models.FairnessReport) *Table {
	rows := [][]string{
		{"CQI", fmt.Sprintf("%.1f", report.CQIResult.CQI)},
		{"Base score", fmt.Sprintf("%.1f", report.CQIResult.BaseScore)},
		{"Penalty multiplier", fmt.Sprintf("%.2f", report.CQIResult.PenaltyMultiplier)},
		{"Effort balance", fmt.Sprintf("%.1f", report.CQIResult.Components.EffortBalance)},
		{"LoC balance", fmt.Sprintf("%.1f", report.CQIResult.Components.LocBalance)},
		{"Temporal spread", fmt.Sprintf("%.1f", report.CQIResult.Components.TemporalSpread)},
		{"Ownership spread", fmt.Sprintf("%.1f", report.CQIResult.Components.OwnershipSpread)},
	}
	if pp := report.CQIResult.Components.PairProgramming; pp != nil {
		rows = append(rows, []string{"Pair programming", fmt.Sprintf("%.1f", *pp)})
	}
	if len(report.Flags) > 0 {
		flags := make([]string, len(report.Flags))
		for i, f := range report.Flags {
			flags[i] = string(f)
		}
		rows = append(rows, []string{"Flags", strings.Join(flags, ", ")})
	}
	rows = append(rows, []string{"Tokens", FormatTokenTotals(report.Metadata.TokenTotals)})

	return NewTable(
		fmt.Sprintf("Team %s", report.TeamName),
		[]string{"Metric", "Value"},
		rows,
		report,
	)
}
