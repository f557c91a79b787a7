package models

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DiffTruncationLimit is the maximum diff text length handed to the rater.
const DiffTruncationLimit = 10000

// TruncationSentinel marks a diff that was cut at DiffTruncationLimit.
const TruncationSentinel = "… (truncated)"

// Chunk is the unit of commit content sent to the rater: either a bundled
// group of small commits or a slice of a large one. Identity is
// (SHA, ChunkIndex, TotalChunks).
type Chunk struct {
	SHA         string       `json:"sha"`
	ChunkIndex  int          `json:"chunk_index"`
	TotalChunks int          `json:"total_chunks"`
	AuthorID    *int64       `json:"author_id,omitempty"`
	AuthorEmail string       `json:"author_email"`
	Message     string       `json:"message"`
	Timestamp   time.Time    `json:"timestamp"`
	Files       []FileChange `json:"files"`
	DiffText    string       `json:"diff_text,omitempty"`
	LinesAdded  int          `json:"lines_added"`
	LinesDeleted int         `json:"lines_deleted"`
	IsBundled   bool         `json:"is_bundled"`
	BundledSHAs []string     `json:"bundled_shas,omitempty"`
	IsMerge     bool         `json:"is_merge,omitempty"`
	RenameOnly  bool         `json:"rename_only,omitempty"`
	FormatOnly  bool         `json:"format_only,omitempty"`
}

// TotalLinesChanged is added plus deleted lines.
func (c *Chunk) TotalLinesChanged() int {
	return c.LinesAdded + c.LinesDeleted
}

// ID returns a stable 64-bit identifier for persistence, derived from the
// chunk identity tuple.
func (c *Chunk) ID() uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s:%d:%d", c.SHA, c.ChunkIndex, c.TotalChunks))
}

// FilePaths returns the ordered list of file paths in the chunk.
func (c *Chunk) FilePaths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// TruncatedDiff returns the diff text cut to DiffTruncationLimit with the
// truncation sentinel appended when anything was dropped.
func (c *Chunk) TruncatedDiff() string {
	if len(c.DiffText) <= DiffTruncationLimit {
		return c.DiffText
	}
	return c.DiffText[:DiffTruncationLimit] + TruncationSentinel
}
