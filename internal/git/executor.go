package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type gitCommandExecutor interface {
	execute(ctx context.Context, command string, args ...string) ([]byte, error)
}

type realGitExecutor struct {
	dir string
}

func newRealGitExecutor(dir string) gitCommandExecutor {
	return &realGitExecutor{dir: dir}
}

// execute runs the command in the executor's directory. Only the subcommand is echoed in
// errors since remote URLs may carry credentials.
func (e *realGitExecutor) execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = e.dir
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	output, err := cmd.Output()
	if err != nil {
		subcommand := ""
		if len(args) > 0 {
			subcommand = args[0]
		}
		return nil, fmt.Errorf("%s %s: %w: %s", command, subcommand, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
