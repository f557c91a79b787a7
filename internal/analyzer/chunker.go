package analyzer

import (
	"strings"
	"time"

	"github.com/collabscope/collabscope/pkg/models"
)

// Chunker defaults.
const (
	DefaultMaxChunkLines   = 500
	DefaultBundleMaxLines  = 30
	DefaultBundleWindowMin = 60
)

// CommitChunker bundles small same-author commits and splits large commits
// into bounded chunks.
type CommitChunker struct {
	maxChunkLines   int
	bundleMaxLines  int
	bundleWindow    time.Duration
}

// ChunkerOption is a functional option for configuring CommitChunker.
type ChunkerOption func(*CommitChunker)

// WithMaxChunkLines sets the upper bound on lines per chunk.
func WithMaxChunkLines(lines int) ChunkerOption {
	return func(c *CommitChunker) {
		if lines > 0 {
			c.maxChunkLines = lines
		}
	}
}

// WithBundleMaxLines sets the small-commit threshold for bundling.
func WithBundleMaxLines(lines int) ChunkerOption {
	return func(c *CommitChunker) {
		if lines >= 0 {
			c.bundleMaxLines = lines
		}
	}
}

// WithBundleWindow sets the maximum gap between bundled commits.
func WithBundleWindow(window time.Duration) ChunkerOption {
	return func(c *CommitChunker) {
		if window > 0 {
			c.bundleWindow = window
		}
	}
}

// NewCommitChunker creates a chunker with the default thresholds.
func NewCommitChunker(opts ...ChunkerOption) *CommitChunker {
	c := &CommitChunker{
		maxChunkLines:  DefaultMaxChunkLines,
		bundleMaxLines: DefaultBundleMaxLines,
		bundleWindow:   DefaultBundleWindowMin * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk runs bundling then splitting over a chronological commit list and
// returns the resulting chunks in order.
func (c *CommitChunker) Chunk(commits []models.Commit) []models.Chunk {
	var chunks []models.Chunk
	for _, bundle := range c.bundle(commits) {
		chunks = append(chunks, c.split(bundle)...)
	}
	return chunks
}

// bundleEntry is a synthetic commit plus the SHAs it merged.
type bundleEntry struct {
	commit      models.Commit
	bundledSHAs []string
}

// bundle walks commits in order merging runs of small commits by the same
// author within the bundling window. Non-small commits flush the current
// bundle and pass through standalone.
func (c *CommitChunker) bundle(commits []models.Commit) []bundleEntry {
	var out []bundleEntry
	var current []models.Commit

	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, mergeBundle(current))
		current = nil
	}

	for _, commit := range commits {
		if commit.TotalLinesChanged() > c.bundleMaxLines {
			flush()
			out = append(out, bundleEntry{commit: commit})
			continue
		}

		if len(current) > 0 && !c.joins(current, commit) {
			flush()
		}
		current = append(current, commit)
	}
	flush()

	return out
}

// joins reports whether a small commit may join the current bundle: same
// author as the bundle's last entry, and within the bundling window of
// the bundle's first timestamp. Anchoring the window to the bundle start
// keeps a chain of close commits from sliding it indefinitely.
func (c *CommitChunker) joins(bundle []models.Commit, next models.Commit) bool {
	if !sameAuthor(bundle[len(bundle)-1], next) {
		return false
	}
	gap := next.Timestamp.Sub(bundle[0].Timestamp)
	return gap >= 0 && gap <= c.bundleWindow
}

// sameAuthor compares author IDs, falling back to emails when neither
// commit has an access-log mapping.
func sameAuthor(a, b models.Commit) bool {
	if a.AuthorID != nil && b.AuthorID != nil {
		return *a.AuthorID == *b.AuthorID
	}
	if a.AuthorID == nil && b.AuthorID == nil {
		return a.AuthorEmail == b.AuthorEmail
	}
	return false
}

// mergeBundle merges a run of commits into one synthetic commit with
// concatenated messages, the earliest timestamp and the union of file
// changes. A singleton run passes through unchanged.
func mergeBundle(run []models.Commit) bundleEntry {
	if len(run) == 1 {
		return bundleEntry{commit: run[0]}
	}

	merged := models.Commit{
		SHA:         run[0].SHA,
		AuthorID:    run[0].AuthorID,
		AuthorEmail: run[0].AuthorEmail,
		Timestamp:   run[0].Timestamp,
	}

	var messages []string
	shas := make([]string, 0, len(run))
	for _, commit := range run {
		shas = append(shas, commit.SHA)
		if msg := strings.TrimSpace(commit.Message); msg != "" {
			messages = append(messages, msg)
		}
		merged.Files = append(merged.Files, commit.Files...)
		if commit.Timestamp.Before(merged.Timestamp) {
			merged.Timestamp = commit.Timestamp
		}
	}
	merged.Message = strings.Join(messages, "; ")

	return bundleEntry{commit: merged, bundledSHAs: shas}
}

// split turns one (possibly bundled) commit into chunks of at most
// maxChunkLines lines. Files larger than the limit form a single oversize
// chunk; there is no intra-file splitting.
func (c *CommitChunker) split(entry bundleEntry) []models.Chunk {
	commit := entry.commit
	isBundled := len(entry.bundledSHAs) > 0

	base := models.Chunk{
		SHA:         commit.SHA,
		AuthorID:    commit.AuthorID,
		AuthorEmail: commit.AuthorEmail,
		Message:     commit.Message,
		Timestamp:   commit.Timestamp,
		IsBundled:   isBundled,
		BundledSHAs: entry.bundledSHAs,
		IsMerge:     commit.IsMerge,
		RenameOnly:  commit.RenameOnly,
		FormatOnly:  commit.FormatOnly,
	}

	// Bundled chunks are never split further.
	if isBundled || commit.TotalLinesChanged() <= c.maxChunkLines {
		chunk := base
		chunk.ChunkIndex = 0
		chunk.TotalChunks = 1
		fillChunkContent(&chunk, commit.Files)
		return []models.Chunk{chunk}
	}

	var groups [][]models.FileChange
	var current []models.FileChange
	currentLines := 0

	for _, f := range commit.Files {
		fileLines := f.AddedLines + f.DeletedLines
		if len(current) > 0 && currentLines+fileLines > c.maxChunkLines {
			groups = append(groups, current)
			current = nil
			currentLines = 0
		}
		current = append(current, f)
		currentLines += fileLines
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	chunks := make([]models.Chunk, 0, len(groups))
	for i, group := range groups {
		chunk := base
		chunk.ChunkIndex = i
		chunk.TotalChunks = len(groups)
		fillChunkContent(&chunk, group)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// fillChunkContent populates files, line counts and concatenated diff text.
func fillChunkContent(chunk *models.Chunk, files []models.FileChange) {
	var diff strings.Builder
	for _, f := range files {
		chunk.LinesAdded += f.AddedLines
		chunk.LinesDeleted += f.DeletedLines
		if f.DiffText != "" {
			if diff.Len() > 0 {
				diff.WriteByte('\n')
			}
			diff.WriteString("--- ")
			diff.WriteString(f.Path)
			diff.WriteByte('\n')
			diff.WriteString(f.DiffText)
		}
	}
	chunk.Files = files
	chunk.DiffText = diff.String()
}
