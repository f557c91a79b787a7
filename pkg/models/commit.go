// Package models defines the data model shared by the analysis pipeline.
package models

import "time"

// FileChange represents a single file touched by a commit.
type FileChange struct {
	Path         string `json:"path"`
	AddedLines   int    `json:"added_lines"`
	DeletedLines int    `json:"deleted_lines"`
	DiffText     string `json:"diff_text,omitempty"`
	IsRename     bool   `json:"is_rename,omitempty"`
}

// Commit is a raw commit emitted by the loader. Immutable once emitted.
type Commit struct {
	SHA         string       `json:"sha"`
	AuthorID    *int64       `json:"author_id,omitempty"` // nil when no access-log entry matched
	AuthorEmail string       `json:"author_email"`
	Message     string       `json:"message"`
	Timestamp   time.Time    `json:"timestamp"`
	Files       []FileChange `json:"files"`
	IsMerge     bool         `json:"is_merge,omitempty"`
	RenameOnly  bool         `json:"rename_only,omitempty"`
	FormatOnly  bool         `json:"format_only,omitempty"`
}

// LinesAdded sums added lines across all file changes.
func (c *Commit) LinesAdded() int {
	var n int
	for _, f := range c.Files {
		n += f.AddedLines
	}
	return n
}

// LinesDeleted sums deleted lines across all file changes.
func (c *Commit) LinesDeleted() int {
	var n int
	for _, f := range c.Files {
		n += f.DeletedLines
	}
	return n
}

// TotalLinesChanged is added plus deleted lines.
func (c *Commit) TotalLinesChanged() int {
	return c.LinesAdded() + c.LinesDeleted()
}
