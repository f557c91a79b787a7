package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/collabscope/collabscope/pkg/models"
)

// scenario chunks are declared as data so the expectations read like the
// situations they describe.
const scenariosYAML = `
- name: even-split
  team_size: 2
  min_cqi: 60
  chunks:
    - {author: 1, day: 2, effort: 7, complexity: 6, novelty: 5, label: FEATURE, confidence: 0.9}
    - {author: 2, day: 3, effort: 7, complexity: 6, novelty: 5, label: FEATURE, confidence: 0.9}
    - {author: 1, day: 12, effort: 6, complexity: 6, novelty: 5, label: FEATURE, confidence: 0.85}
    - {author: 2, day: 13, effort: 6, complexity: 6, novelty: 5, label: FEATURE, confidence: 0.85}
    - {author: 1, day: 24, effort: 7, complexity: 5, novelty: 4, label: BUG_FIX, confidence: 0.9}
    - {author: 2, day: 25, effort: 7, complexity: 5, novelty: 4, label: TEST, confidence: 0.9}
- name: dominated
  team_size: 2
  max_cqi: 0
  expect_penalty: SOLO_DEVELOPMENT
  chunks:
    - {author: 1, day: 2, effort: 9, complexity: 8, novelty: 7, label: FEATURE, confidence: 0.9}
    - {author: 1, day: 9, effort: 9, complexity: 8, novelty: 7, label: FEATURE, confidence: 0.9}
    - {author: 1, day: 16, effort: 9, complexity: 8, novelty: 7, label: FEATURE, confidence: 0.9}
    - {author: 2, day: 20, effort: 1, complexity: 1, novelty: 1, label: TRIVIAL, confidence: 0.9}
- name: trivial-heavy
  team_size: 2
  expect_penalty: HIGH_TRIVIAL
  chunks:
    - {author: 1, day: 2, effort: 2, complexity: 2, novelty: 1, label: TRIVIAL, confidence: 0.9}
    - {author: 2, day: 5, effort: 2, complexity: 2, novelty: 1, label: TRIVIAL, confidence: 0.9}
    - {author: 1, day: 12, effort: 2, complexity: 2, novelty: 1, label: TRIVIAL, confidence: 0.9}
    - {author: 2, day: 15, effort: 2, complexity: 2, novelty: 1, label: TRIVIAL, confidence: 0.9}
    - {author: 1, day: 22, effort: 7, complexity: 6, novelty: 5, label: FEATURE, confidence: 0.9}
    - {author: 2, day: 25, effort: 7, complexity: 6, novelty: 5, label: FEATURE, confidence: 0.9}
`

type scenarioChunk struct {
	Author     int64   `yaml:"author"`
	Day        int     `yaml:"day"`
	Effort     float64 `yaml:"effort"`
	Complexity float64 `yaml:"complexity"`
	Novelty    float64 `yaml:"novelty"`
	Label      string  `yaml:"label"`
	Confidence float64 `yaml:"confidence"`
}

type scenario struct {
	Name          string          `yaml:"name"`
	TeamSize      int             `yaml:"team_size"`
	MinCQI        *float64        `yaml:"min_cqi"`
	MaxCQI        *float64        `yaml:"max_cqi"`
	ExpectPenalty string          `yaml:"expect_penalty"`
	Chunks        []scenarioChunk `yaml:"chunks"`
}

func TestCQIScenarios(t *testing.T) {
	var scenarios []scenario
	require.NoError(t, yaml.Unmarshal([]byte(scenariosYAML), &scenarios))

	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 28)
	calc := NewCQICalculator()

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			rated := make([]models.AnalyzedChunk, 0, len(sc.Chunks))
			for _, c := range sc.Chunks {
				chunk := ratedChunk(c.Author, start.AddDate(0, 0, c.Day),
					c.Effort, c.Complexity, c.Novelty,
					models.ChangeLabel(c.Label), c.Confidence)
				rated = append(rated, chunk)
			}

			result := calc.Calculate(CalcInput{
				RatedChunks:  rated,
				TeamSize:     sc.TeamSize,
				MemberIDs:    []int64{1, 2},
				ProjectStart: start,
				ProjectEnd:   end,
			})

			assert.GreaterOrEqual(t, result.CQI, 0.0)
			assert.LessOrEqual(t, result.CQI, 100.0)

			if sc.MinCQI != nil {
				assert.GreaterOrEqual(t, result.CQI, *sc.MinCQI, "CQI below floor")
			}
			if sc.MaxCQI != nil {
				assert.LessOrEqual(t, result.CQI, *sc.MaxCQI, "CQI above ceiling")
			}
			if sc.ExpectPenalty != "" {
				kinds := make([]string, 0, len(result.Penalties))
				for _, p := range result.Penalties {
					kinds = append(kinds, string(p.Kind))
				}
				assert.Contains(t, kinds, sc.ExpectPenalty)
			}
		})
	}
}
