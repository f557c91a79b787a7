package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/collabscope/collabscope/internal/gittest"
)

func TestLoaderChronologicalOrder(t *testing.T) {
	repo := gittest.Init(t)
	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

	sha1 := repo.CommitFile("main.go", gittest.Lines(5, "v1"), "initial work", "Alice", "alice@example.com", base)
	sha2 := repo.CommitFile("main.go", gittest.Lines(8, "v2"), "extend parser", "Bob", "bob@example.com", base.Add(time.Hour))

	loader := NewCommitLoader()
	commits, err := loader.Load(context.Background(), repo.Path, map[string]int64{
		sha1: 11,
		sha2: 22,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}
	if commits[0].SHA != sha1 || commits[1].SHA != sha2 {
		t.Error("commits not in chronological order")
	}
	if commits[0].AuthorID == nil || *commits[0].AuthorID != 11 {
		t.Errorf("author id = %v, want 11", commits[0].AuthorID)
	}
	if commits[0].AuthorEmail != "alice@example.com" {
		t.Errorf("author email = %s", commits[0].AuthorEmail)
	}
	if commits[0].Message != "initial work" {
		t.Errorf("message = %q", commits[0].Message)
	}
}

func TestLoaderInitialCommitCountsAllLines(t *testing.T) {
	repo := gittest.Init(t)
	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	repo.CommitFile("main.go", gittest.Lines(10, "v1"), "initial", "Alice", "alice@example.com", base)

	loader := NewCommitLoader()
	commits, err := loader.Load(context.Background(), repo.Path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if commits[0].LinesAdded() != 10 {
		t.Errorf("initial commit lines added = %d, want 10 (empty-tree diff)", commits[0].LinesAdded())
	}
	if commits[0].LinesDeleted() != 0 {
		t.Errorf("initial commit lines deleted = %d, want 0", commits[0].LinesDeleted())
	}
	if commits[0].IsMerge {
		t.Error("single-parent commit flagged as merge")
	}
}

func TestLoaderDiffCounts(t *testing.T) {
	repo := gittest.Init(t)
	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	repo.CommitFile("main.go", gittest.Lines(10, "v1"), "initial", "Alice", "alice@example.com", base)
	repo.CommitFile("main.go", gittest.Lines(10, "v2"), "rewrite all lines", "Alice", "alice@example.com", base.Add(time.Hour))

	loader := NewCommitLoader()
	commits, err := loader.Load(context.Background(), repo.Path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	second := commits[1]
	if second.LinesAdded() != 10 || second.LinesDeleted() != 10 {
		t.Errorf("rewrite counts = %d/%d, want 10/10", second.LinesAdded(), second.LinesDeleted())
	}
	if len(second.Files) != 1 || second.Files[0].Path != "main.go" {
		t.Errorf("files = %+v", second.Files)
	}
	if second.Files[0].DiffText == "" {
		t.Error("diff text missing")
	}
}

func TestLoaderMissingRepo(t *testing.T) {
	loader := NewCommitLoader()
	_, err := loader.Load(context.Background(), t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected RepositoryError for non-repo path")
	}
	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) {
		t.Errorf("error type = %T, want *RepositoryError", err)
	}
}
