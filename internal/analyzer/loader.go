// Package analyzer implements the team-repository analysis pipeline:
// commit loading, chunking, pre-filtering, pair-programming attendance and
// the collaboration quality index calculation.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/collabscope/collabscope/internal/vcs"
	"github.com/collabscope/collabscope/pkg/models"
)

// RepositoryError wraps a git failure that aborts analysis of one team.
type RepositoryError struct {
	Path string
	Err  error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Path, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// CommitLoader walks a local git history and emits raw commits with diffs
// and per-file add/delete counts, oldest first.
type CommitLoader struct {
	opener vcs.Opener
}

// LoaderOption is a functional option for configuring CommitLoader.
type LoaderOption func(*CommitLoader)

// WithLoaderOpener sets the VCS opener (useful for testing).
func WithLoaderOpener(opener vcs.Opener) LoaderOption {
	return func(l *CommitLoader) {
		l.opener = opener
	}
}

// NewCommitLoader creates a new commit loader.
func NewCommitLoader(opts ...LoaderOption) *CommitLoader {
	l := &CommitLoader{opener: vcs.DefaultOpener()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks the repository at repoPath and returns its commits in
// chronological order. authorBySHA maps commit SHAs to platform user IDs,
// built from the exercise access log; commits without a mapping keep a nil
// author ID. Unresolvable commits are skipped with a warning.
func (l *CommitLoader) Load(ctx context.Context, repoPath string, authorBySHA map[string]int64) ([]models.Commit, error) {
	repo, err := l.opener.PlainOpen(repoPath)
	if err != nil {
		return nil, &RepositoryError{Path: repoPath, Err: err}
	}

	logIter, err := repo.Log(&vcs.LogOptions{})
	if err != nil {
		return nil, &RepositoryError{Path: repoPath, Err: err}
	}
	defer logIter.Close()

	var commits []models.Commit
	err = logIter.ForEach(func(commit vcs.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		loaded, err := l.loadCommit(ctx, repo, commit, authorBySHA)
		if err != nil {
			slog.Warn("skipping unreadable commit",
				"sha", commit.Hash().String(), "error", err)
			return nil
		}
		commits = append(commits, loaded)
		return nil
	})
	if err != nil {
		return nil, &RepositoryError{Path: repoPath, Err: err}
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Timestamp.Before(commits[j].Timestamp)
	})
	return commits, nil
}

func (l *CommitLoader) loadCommit(ctx context.Context, repo vcs.Repository, commit vcs.Commit, authorBySHA map[string]int64) (models.Commit, error) {
	sha := commit.Hash().String()
	sig := commit.Author()

	loaded := models.Commit{
		SHA:         sha,
		AuthorEmail: models.NormalizeEmail(sig.Email),
		Message:     strings.TrimRight(commit.Message(), "\n"),
		Timestamp:   sig.When,
		IsMerge:     commit.NumParents() >= 2,
	}
	if id, ok := authorBySHA[sha]; ok {
		loaded.AuthorID = &id
	}

	changes, err := repo.DiffParent(ctx, commit)
	if err != nil {
		return models.Commit{}, err
	}

	renames := 0
	for _, change := range changes {
		fc := models.FileChange{Path: change.Path()}
		if change.Kind() == vcs.ChangeRename {
			fc.IsRename = true
			renames++
		}

		patch, err := change.Patch()
		if err != nil {
			// Binary or unreadable patch; keep the file with zero counts.
			loaded.Files = append(loaded.Files, fc)
			continue
		}

		var diffText strings.Builder
		for _, filePatch := range patch.FilePatches() {
			for _, chunk := range filePatch.Chunks() {
				content := chunk.Content()
				switch chunk.Type() {
				case vcs.ChunkAdd:
					fc.AddedLines += countLines(content)
					writeDiffLines(&diffText, "+", content)
				case vcs.ChunkDelete:
					fc.DeletedLines += countLines(content)
					writeDiffLines(&diffText, "-", content)
				}
			}
		}
		fc.DiffText = diffText.String()
		loaded.Files = append(loaded.Files, fc)
	}

	// A commit whose changes are all renames with no content edits carries
	// no signal; flag it for the pre-filter.
	if len(changes) > 0 && renames == len(changes) && loaded.TotalLinesChanged() == 0 {
		loaded.RenameOnly = true
	}

	return loaded, nil
}

// countLines counts the number of newlines in content.
func countLines(content string) int {
	return strings.Count(content, "\n")
}

// writeDiffLines prefixes every line of a chunk with the diff marker.
func writeDiffLines(b *strings.Builder, marker, content string) {
	for line := range strings.Lines(content) {
		b.WriteString(marker)
		b.WriteString(strings.TrimRight(line, "\n"))
		b.WriteByte('\n')
	}
}
