package analyzer

import (
	"path"
	"regexp"
	"strings"

	"github.com/collabscope/collabscope/pkg/models"
)

// FilterReason names why a chunk was dropped before rating.
type FilterReason string

// Filter reasons, in evaluation order. The first matching reason wins.
const (
	ReasonEmpty              FilterReason = "EMPTY"
	ReasonMergeCommit        FilterReason = "MERGE_COMMIT"
	ReasonRevertCommit       FilterReason = "REVERT_COMMIT"
	ReasonGeneratedFilesOnly FilterReason = "GENERATED_FILES_ONLY"
	ReasonRenameOnly         FilterReason = "RENAME_ONLY"
	ReasonFormatOnly         FilterReason = "FORMAT_ONLY"
	ReasonMassReformat       FilterReason = "MASS_REFORMAT"
	ReasonTrivialMessage     FilterReason = "TRIVIAL_MESSAGE"
	ReasonSmallTrivial       FilterReason = "SMALL_TRIVIAL_COMMIT"
)

// FilteredChunk is a dropped chunk with its reason.
type FilteredChunk struct {
	Chunk  models.Chunk `json:"chunk"`
	Reason FilterReason `json:"reason"`
}

// PreFilterResult partitions chunks into rateable and dropped.
type PreFilterResult struct {
	ChunksToAnalyze []models.Chunk
	FilteredChunks  []FilteredChunk
	Summary         models.FilterSummary
}

// Message prefixes that identify merge commits.
var mergePrefixes = []string{
	"merge branch",
	"merge pull request",
	"merge remote-tracking",
	"merge '",
	"merged ",
}

var (
	renameMessageRe  = regexp.MustCompile(`(?i)^(rename|move|renamed)\b`)
	revertBodyMarker = "This reverts commit"
)

// PreFilter drops chunks that cannot carry effort signal. Stateless; the
// pattern sets are configuration, not invariants.
type PreFilter struct {
	generatedPatterns []string
	trivialPatterns   []*regexp.Regexp
	formatTokenRe     *regexp.Regexp
}

// PreFilterOption is a functional option for configuring PreFilter.
type PreFilterOption func(*PreFilter)

// WithGeneratedFilePatterns replaces the generated-file glob set.
func WithGeneratedFilePatterns(patterns []string) PreFilterOption {
	return func(f *PreFilter) {
		if len(patterns) > 0 {
			f.generatedPatterns = patterns
		}
	}
}

// WithTrivialMessagePatterns replaces the trivial-message regexp set.
// Invalid patterns are skipped.
func WithTrivialMessagePatterns(patterns []string) PreFilterOption {
	return func(f *PreFilter) {
		var compiled []*regexp.Regexp
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				continue
			}
			compiled = append(compiled, re)
		}
		if len(compiled) > 0 {
			f.trivialPatterns = compiled
		}
	}
}

// WithFormatMessageTokens replaces the format/lint token list.
func WithFormatMessageTokens(tokens []string) PreFilterOption {
	return func(f *PreFilter) {
		if len(tokens) > 0 {
			f.formatTokenRe = compileTokenRe(tokens)
		}
	}
}

func compileTokenRe(tokens []string) *regexp.Regexp {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// DefaultGeneratedFilePatterns is the shipped generated-file glob set.
var DefaultGeneratedFilePatterns = []string{
	"*-lock.json",
	"yarn.lock",
	"*.lock",
	"Cargo.lock",
	"go.sum",
	"*.min.js",
	"*.min.css",
	"dist/*",
	"build/*",
	"target/*",
	"node_modules/*",
}

// DefaultTrivialMessagePatterns is the shipped throwaway-message set.
var DefaultTrivialMessagePatterns = []string{
	`^[[:punct:]]$`,
	`^(wip|temp|test|oops|stuff|changes|init|initial commit|first commit|typo(s)?|fix typo)$`,
	`^chore\(deps\)`,
	`\[bot\]`,
	`^auto-format`,
	`^update dependencies`,
}

// DefaultFormatMessageTokens is the shipped format/lint token list.
var DefaultFormatMessageTokens = []string{
	"format", "formatting", "prettier", "eslint", "checkstyle",
	"spotless", "black", "indent", "whitespace", "style",
}

// NewPreFilter creates a pre-filter with the default pattern sets.
func NewPreFilter(opts ...PreFilterOption) *PreFilter {
	f := &PreFilter{
		generatedPatterns: DefaultGeneratedFilePatterns,
		formatTokenRe:     compileTokenRe(DefaultFormatMessageTokens),
	}
	WithTrivialMessagePatterns(DefaultTrivialMessagePatterns)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter classifies every chunk, returning the survivors and the dropped
// chunks with reasons.
func (f *PreFilter) Filter(chunks []models.Chunk) PreFilterResult {
	result := PreFilterResult{
		Summary: models.FilterSummary{
			TotalChunks:  len(chunks),
			ReasonCounts: make(map[string]int),
		},
	}

	for _, chunk := range chunks {
		if reason, drop := f.classify(chunk); drop {
			result.FilteredChunks = append(result.FilteredChunks, FilteredChunk{Chunk: chunk, Reason: reason})
			result.Summary.ReasonCounts[string(reason)]++
			continue
		}
		result.ChunksToAnalyze = append(result.ChunksToAnalyze, chunk)
	}

	result.Summary.Analyzed = len(result.ChunksToAnalyze)
	result.Summary.Filtered = len(result.FilteredChunks)
	return result
}

// classify applies the filter tests in order; the first match wins.
func (f *PreFilter) classify(chunk models.Chunk) (FilterReason, bool) {
	message := strings.TrimSpace(chunk.Message)
	lower := strings.ToLower(message)

	switch {
	case chunk.LinesAdded == 0 && chunk.LinesDeleted == 0:
		return ReasonEmpty, true
	case f.isMerge(chunk, lower):
		return ReasonMergeCommit, true
	case strings.HasPrefix(message, "Revert") || strings.Contains(message, revertBodyMarker):
		return ReasonRevertCommit, true
	case f.generatedOnly(chunk):
		return ReasonGeneratedFilesOnly, true
	case f.renameOnly(chunk, message):
		return ReasonRenameOnly, true
	case chunk.FormatOnly || f.formatTokenRe.MatchString(message):
		return ReasonFormatOnly, true
	case f.massReformat(chunk, message):
		return ReasonMassReformat, true
	case f.trivialMessage(message):
		return ReasonTrivialMessage, true
	case chunk.TotalLinesChanged() <= 5 && f.looksTrivial(message):
		return ReasonSmallTrivial, true
	}
	return "", false
}

// looksTrivial is the looser test applied to tiny commits: an explicit
// trivial pattern, or a message of at most two words.
func (f *PreFilter) looksTrivial(message string) bool {
	if f.trivialMessage(message) {
		return true
	}
	return len(strings.Fields(message)) <= 2
}

func (f *PreFilter) isMerge(chunk models.Chunk, lowerMessage string) bool {
	if chunk.IsMerge {
		return true
	}
	for _, prefix := range mergePrefixes {
		if strings.HasPrefix(lowerMessage, prefix) {
			return true
		}
	}
	return false
}

// generatedOnly reports whether every file in the chunk matches a
// generated-file pattern. Chunks without files never match.
func (f *PreFilter) generatedOnly(chunk models.Chunk) bool {
	if len(chunk.Files) == 0 {
		return false
	}
	for _, file := range chunk.Files {
		if !f.matchesGenerated(file.Path) {
			return false
		}
	}
	return true
}

func (f *PreFilter) matchesGenerated(filePath string) bool {
	base := path.Base(filePath)
	for _, pattern := range f.generatedPatterns {
		if strings.HasSuffix(pattern, "/*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if strings.HasPrefix(filePath, prefix) || strings.Contains(filePath, "/"+prefix) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (f *PreFilter) renameOnly(chunk models.Chunk, message string) bool {
	if chunk.RenameOnly {
		return true
	}
	return renameMessageRe.MatchString(message) && chunk.TotalLinesChanged() <= 5
}

// massReformat: many files, almost no lines each, and a message that
// suggests reformatting.
func (f *PreFilter) massReformat(chunk models.Chunk, message string) bool {
	if len(chunk.Files) < 10 {
		return false
	}
	mean := float64(chunk.TotalLinesChanged()) / float64(len(chunk.Files))
	return mean <= 3 && f.formatTokenRe.MatchString(message)
}

func (f *PreFilter) trivialMessage(message string) bool {
	for _, re := range f.trivialPatterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}
