// Package gittest builds throwaway git repositories for pipeline tests.
package gittest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo wraps a temporary repository under test.
type Repo struct {
	t    *testing.T
	Path string
	repo *git.Repository
}

// Init creates an empty repository under a temp directory.
func Init(t *testing.T) *Repo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo")
	repo, err := git.PlainInit(path, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return &Repo{t: t, Path: path, repo: repo}
}

// CommitFile writes content to a file and commits it with the given
// author and timestamp. Returns the commit SHA.
func (r *Repo) CommitFile(file, content, message, author, email string, when time.Time) string {
	r.t.Helper()

	full := filepath.Join(r.Path, file)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write file: %v", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add(file); err != nil {
		r.t.Fatalf("add: %v", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: author, Email: email, When: when},
	})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

// Lines builds file content with n numbered lines, distinct per seed so
// successive commits always change every line.
func Lines(n int, seed string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s line %d\n", seed, i)
	}
	return b.String()
}
