package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/collabscope/collabscope/pkg/models"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"json":     FormatJSON,
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"toon":     FormatToon,
		"text":     FormatText,
		"":         FormatText,
		"bogus":    FormatText,
	}
	for in, want := range cases {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Results", []string{"Team", "CQI"}, [][]string{
		{"alpha", "81.0"},
		{"beta", "40.5"},
	}, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"## Results", "| Team | CQI |", "| alpha | 81.0 |"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderData(t *testing.T) {
	table := NewTable("", []string{"A", "B"}, [][]string{{"1", "2"}}, nil)
	data, ok := table.RenderData().([]map[string]string)
	if !ok {
		t.Fatalf("RenderData type = %T", table.RenderData())
	}
	if data[0]["A"] != "1" || data[0]["B"] != "2" {
		t.Errorf("data = %+v", data)
	}
}

func TestTeamsTable(t *testing.T) {
	cqi := 81.25
	table := TeamsTable(7, []models.TeamParticipation{
		{TeamName: "alpha", CQI: &cqi, IsSuspicious: true,
			Students: []models.Student{{ID: 1}, {ID: 2}}},
		{TeamName: "beta"},
	})

	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if table.Rows[0][2] != "81.2" && table.Rows[0][2] != "81.3" {
		t.Errorf("cqi cell = %q", table.Rows[0][2])
	}
	if table.Rows[1][2] != "-" {
		t.Errorf("unanalyzed cqi cell = %q", table.Rows[1][2])
	}
}

func TestReportTable(t *testing.T) {
	pp := 66.7
	report := &models.FairnessReport{
		TeamName: "alpha",
		Flags:    []models.ReportFlag{models.FlagUnevenDistribution},
		CQIResult: models.CQIResult{
			CQI:               42.5,
			BaseScore:         60.7,
			PenaltyMultiplier: 0.7,
			Components:        models.ComponentScores{PairProgramming: &pp},
		},
	}
	table := ReportTable(report)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"42.5", "Pair programming", "UNEVEN_DISTRIBUTION"} {
		if !strings.Contains(out, want) {
			t.Errorf("report table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTokenCount(t *testing.T) {
	if got := FormatTokenCount(999); got != "999" {
		t.Errorf("got %q", got)
	}
	if got := FormatTokenCount(12500); got != "12.5k" {
		t.Errorf("got %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("empty text should estimate 0")
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("estimate = %d, want 100", got)
	}
}

func TestFormatTokenTotals(t *testing.T) {
	if got := FormatTokenTotals(models.TokenTotals{}); got != "no model calls" {
		t.Errorf("got %q", got)
	}
	totals := models.TokenTotals{LLMCalls: 4, CallsWithUsage: 4, PromptTokens: 2000, CompletionTokens: 500, TotalTokens: 2500}
	got := FormatTokenTotals(totals)
	if !strings.Contains(got, "4 calls") || !strings.Contains(got, "2.5k") {
		t.Errorf("got %q", got)
	}
}
