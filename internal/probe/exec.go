package probe

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ExecProbe runs a command whose exit status signals readiness: zero is
// healthy, non-zero is still starting, anything else is a probe failure.
type ExecProbe struct {
	Command string
}

// buildShellAwareCommand constructs an *exec.Cmd for a probe command.
// Avoids invoking a shell unless obvious shell metacharacters are present (G204 mitigation).
func buildShellAwareCommand(ctx context.Context, cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return exec.CommandContext(ctx, "/bin/true")
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.CommandContext(ctx, "/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.CommandContext(ctx, name, args...)
}

func (p ExecProbe) Check(ctx context.Context) (Result, error) {
	cmd := buildShellAwareCommand(ctx, p.Command)
	cmd.Stdout = nil
	cmd.Stderr = nil
	err := cmd.Run()
	now := time.Now()
	if err == nil {
		return Result{State: StateHealthy, CheckedAt: now}, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return Result{
			State:     StateStarting,
			Code:      ee.ExitCode(),
			Detail:    "check exited " + ee.Error(),
			CheckedAt: now,
		}, nil
	}
	return Result{State: StateUnknown, CheckedAt: now}, err
}

func (p ExecProbe) Describe() string { return "exec:" + p.Command }
