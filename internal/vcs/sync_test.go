package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "source")
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("main.go"); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Alice", Email: "alice@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCloneOrPullClonesFresh(t *testing.T) {
	source := initSourceRepo(t)
	syncer := NewSyncer(t.TempDir(), "", "")

	path, err := syncer.CloneOrPull(context.Background(), source, 42)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		t.Errorf("clone missing .git: %v", err)
	}
	if path != syncer.LocalPath(42) {
		t.Errorf("path = %s, want %s", path, syncer.LocalPath(42))
	}
}

func TestCloneOrPullReusesSnapshot(t *testing.T) {
	source := initSourceRepo(t)
	syncer := NewSyncer(t.TempDir(), "", "")

	first, err := syncer.CloneOrPull(context.Background(), source, 42)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	// Second sync against an up-to-date remote keeps the snapshot usable.
	second, err := syncer.CloneOrPull(context.Background(), source, 42)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %s vs %s", first, second)
	}

	if _, err := NewGitOpener().PlainOpen(second); err != nil {
		t.Errorf("snapshot not openable: %v", err)
	}
}

func TestCloneOrPullBadRemote(t *testing.T) {
	syncer := NewSyncer(t.TempDir(), "", "")
	if _, err := syncer.CloneOrPull(context.Background(), filepath.Join(t.TempDir(), "missing"), 7); err == nil {
		t.Error("expected clone failure for missing remote")
	}
}
