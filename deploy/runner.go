package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner executes an external command and returns its stdout. The
// enforcement point is controlled entirely through commands, so this is the
// only process-level seam the trigger needs.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, err error)
}

type execCommandRunner struct {
	timeout time.Duration
}

// NewCommandRunner creates a CommandRunner that bounds every command with
// the given timeout.
func NewCommandRunner(timeout time.Duration) CommandRunner {
	return &execCommandRunner{timeout: timeout}
}

func (r *execCommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %v: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
