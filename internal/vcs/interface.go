// Package vcs provides version control system abstractions.
package vcs

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
}

// Repository provides access to git repository operations.
type Repository interface {
	// Head returns a reference to the HEAD commit.
	Head() (Reference, error)
	// Log returns a commit iterator starting from HEAD.
	Log(opts *LogOptions) (CommitIterator, error)
	// CommitObject returns the commit with the given hash.
	CommitObject(hash plumbing.Hash) (Commit, error)
	// DiffParent diffs a commit against its first parent with rename
	// detection. The initial commit is diffed against the empty tree.
	DiffParent(ctx context.Context, commit Commit) (Changes, error)
	// RepoPath returns the root path of the repository.
	RepoPath() string
}

// Reference represents a git reference (branch, tag, HEAD).
type Reference interface {
	Hash() plumbing.Hash
}

// LogOptions configures the commit log query.
type LogOptions struct{}

// CommitIterator iterates over commits.
type CommitIterator interface {
	ForEach(fn func(Commit) error) error
	Close()
}

// Commit represents a git commit.
type Commit interface {
	// Hash returns the commit hash.
	Hash() plumbing.Hash
	// NumParents returns the number of parent commits.
	NumParents() int
	// Author returns commit author information.
	Author() object.Signature
	// Message returns the commit message.
	Message() string
}

// ChangeKind classifies a file change within a commit.
type ChangeKind int

// File change kinds.
const (
	ChangeModify ChangeKind = iota
	ChangeAdd
	ChangeDelete
	ChangeRename
)

// Change represents one changed file in a first-parent diff.
type Change interface {
	// Path returns the post-change path (pre-change path for deletions).
	Path() string
	// Kind reports how the file changed.
	Kind() ChangeKind
	// Patch returns the textual patch for this change.
	Patch() (Patch, error)
}

// Changes represents a collection of file changes between trees.
type Changes []Change

// Patch gives access to the per-file diff content.
type Patch interface {
	FilePatches() []FilePatch
}

// FilePatch holds the diff chunks of one file.
type FilePatch interface {
	Chunks() []Chunk
}

// ChunkType classifies a diff chunk.
type ChunkType int

// Diff chunk types.
const (
	ChunkEqual ChunkType = iota
	ChunkAdd
	ChunkDelete
)

// Chunk is a contiguous run of equal/added/deleted diff lines.
type Chunk interface {
	Type() ChunkType
	Content() string
}
