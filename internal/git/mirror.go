package git

import (
	"context"
	"fmt"
	"os"
)

// MirrorRequest describes how a pull request branch is squashed and pushed to another remote
type MirrorRequest struct {
	SourceURL    string
	SourceBranch string
	// BaseCommit is the first commit of the pull request, everything after it is folded into it
	BaseCommit    string
	TargetURL     string
	TargetBranch  string
	CommitMessage string
	AuthorName    string
	AuthorEmail   string
}

type Mirror struct {
	tempDir     string
	newExecutor func(dir string) gitCommandExecutor
}

// NewMirror creates a Mirror working in temporary directories below tempDir
// (the system default when empty)
func NewMirror(tempDir string) *Mirror {
	return &Mirror{tempDir: tempDir, newExecutor: newRealGitExecutor}
}

// Push clones the source branch, squashes it onto its first commit with the requested message
// and force pushes the result to the target remote
func (m *Mirror) Push(ctx context.Context, req MirrorRequest) error {
	workDir, err := os.MkdirTemp(m.tempDir, "github-import-")
	if err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	executor := m.newExecutor(workDir)
	steps := [][]string{
		{"clone", "--quiet", "--single-branch", "--branch", req.SourceBranch, "--", req.SourceURL, "."},
		{"checkout", "-b", req.TargetBranch},
		{"reset", "--soft", req.BaseCommit},
		{"-c", "user.name=" + req.AuthorName, "-c", "user.email=" + req.AuthorEmail, "commit", "--amend", "-m", req.CommitMessage},
		{"push", "--force", "--set-upstream", req.TargetURL, req.TargetBranch},
	}
	for _, args := range steps {
		if _, err := executor.execute(ctx, "git", args...); err != nil {
			return fmt.Errorf("mirroring %s to %s: %w", req.SourceBranch, req.TargetBranch, err)
		}
	}
	return nil
}
