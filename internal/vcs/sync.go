package vcs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Syncer maintains local snapshots of remote repositories under a cache
// directory.
type Syncer struct {
	cacheDir string
	username string
	password string
}

// NewSyncer creates a syncer rooted at cacheDir.
func NewSyncer(cacheDir, username, password string) *Syncer {
	return &Syncer{cacheDir: cacheDir, username: username, password: password}
}

// LocalPath returns the snapshot directory for a participation.
func (s *Syncer) LocalPath(participationID int64) string {
	return filepath.Join(s.cacheDir, "participation", strconv.FormatInt(participationID, 10))
}

// CloneOrPull ensures a local snapshot of the repository exists and is as
// fresh as the remote allows. A failed pull falls back to the existing
// snapshot rather than failing the analysis.
func (s *Syncer) CloneOrPull(ctx context.Context, repoURI string, participationID int64) (string, error) {
	path := s.LocalPath(participationID)

	if _, err := os.Stat(filepath.Join(path, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
			URL:  repoURI,
			Auth: s.auth(),
		})
		if err != nil {
			return "", err
		}
		return path, nil
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	err = wt.PullContext(ctx, &git.PullOptions{Auth: s.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Warn("pull failed, using existing snapshot",
			"participation", participationID, "error", err)
	}
	return path, nil
}

func (s *Syncer) auth() transport.AuthMethod {
	if s.username == "" {
		return nil
	}
	return &http.BasicAuth{Username: s.username, Password: s.password}
}
