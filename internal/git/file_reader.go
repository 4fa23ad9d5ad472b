package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/multimediallc/pr-import-bot/pkg/area"
)

// GitRefFetcher reads file content from a specific git ref of a local repository
type GitRefFetcher struct {
	ref      string
	dir      string
	executor gitCommandExecutor
}

// NewGitRefFetcher creates a new GitRefFetcher for reading files from a git ref
func NewGitRefFetcher(ref string, dir string) *GitRefFetcher {
	return &GitRefFetcher{
		ref:      ref,
		dir:      dir,
		executor: newRealGitExecutor(dir),
	}
}

// Fetch reads a file from the git ref
func (r *GitRefFetcher) Fetch(ctx context.Context, path string) (string, error) {
	path = r.normalizePathForGit(path)

	output, err := r.executor.execute(ctx, "git", "show", fmt.Sprintf("%s:%s", r.ref, path))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &area.TransportError{Ref: path, Err: ctxErr}
		}
		if !r.PathExists(ctx, path) {
			return "", &area.NotFoundError{Ref: fmt.Sprintf("%s:%s", r.ref, path)}
		}
		return "", &area.TransportError{Ref: path, Err: fmt.Errorf("failed to read file %s from ref %s: %w", path, r.ref, err)}
	}
	return string(output), nil
}

// PathExists checks if a file exists in the git ref
func (r *GitRefFetcher) PathExists(ctx context.Context, path string) bool {
	path = r.normalizePathForGit(path)
	_, err := r.executor.execute(ctx, "git", "cat-file", "-e", fmt.Sprintf("%s:%s", r.ref, path))
	return err == nil
}

// normalizePathForGit makes path relative to the repository root
func (r *GitRefFetcher) normalizePathForGit(path string) string {
	dir := strings.TrimSuffix(r.dir, "/")
	if dir != "" && dir != "." && strings.HasPrefix(path, dir+"/") {
		path = strings.TrimPrefix(path, dir+"/")
	}
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}
