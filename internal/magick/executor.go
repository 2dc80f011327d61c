package magick

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// ExecResult holds the outcome of a single tool invocation.
type ExecResult struct {
	Stdout string
	Stderr string
	Err    error
}

// Execute runs bin with args and waits for it to exit. Stdout and stderr
// are captured; when tee is true stderr is also copied to os.Stderr as it
// arrives.
func Execute(ctx context.Context, bin string, args []string, tee bool) ExecResult {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	if tee {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
