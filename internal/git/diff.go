package git

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/multimediallc/pr-import-bot/pkg/area"
	"github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

type Diff interface {
	ChangedFiles() []area.ChangedFile
	Context() DiffContext
}

type GitDiff struct {
	context DiffContext
	files   []area.ChangedFile
}

type DiffContext struct {
	Base       string
	Head       string
	Dir        string
	IgnoreDirs []string
}

// NewDiff lists the files changed between the merge base of Base and Head, and Head
func NewDiff(ctx context.Context, diffContext DiffContext) (Diff, error) {
	return NewDiffWithExecutor(ctx, diffContext, newRealGitExecutor(diffContext.Dir))
}

func NewDiffWithExecutor(ctx context.Context, diffContext DiffContext, executor gitCommandExecutor) (Diff, error) {
	output, err := executor.execute(ctx, "git", "diff", "-U0", fmt.Sprintf("%s...%s", diffContext.Base, diffContext.Head))
	if err != nil {
		return nil, fmt.Errorf("Diff Error: %w", err)
	}
	files, err := ParsePatch(output)
	if err != nil {
		return nil, err
	}
	files = slices.DeleteFunc(files, func(file area.ChangedFile) bool {
		for _, dir := range diffContext.IgnoreDirs {
			if strings.HasPrefix(file.Path, dir) {
				return true
			}
		}
		return false
	})
	return &GitDiff{context: diffContext, files: files}, nil
}

func (gd *GitDiff) ChangedFiles() []area.ChangedFile {
	return gd.files
}

func (gd *GitDiff) Context() DiffContext {
	return gd.context
}

// ParsePatch lists the files of a unified multi file diff. Deleted files are left out since
// their content no longer exists. The content reference of a file is its path.
func ParsePatch(patch []byte) ([]area.ChangedFile, error) {
	fileDiffs, err := diff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	files := make([]area.ChangedFile, 0, len(fileDiffs))
	for _, d := range fileDiffs {
		if d.NewName == "" || d.NewName == devNull {
			continue
		}
		name := strings.TrimPrefix(d.NewName, "b/")
		files = append(files, area.ChangedFile{Path: name, ContentRef: name})
	}
	return files, nil
}
