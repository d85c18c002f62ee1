package probe

import (
	"context"
	"runtime"
	"testing"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestExecProbeZeroExitIsHealthy(t *testing.T) {
	requireUnix(t)
	res, err := ExecProbe{Command: "true"}.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateHealthy {
		t.Fatalf("expected healthy, got %v", res.State)
	}
}

func TestExecProbeNonZeroExitIsStarting(t *testing.T) {
	requireUnix(t)
	res, err := ExecProbe{Command: "false"}.Check(context.Background())
	if err != nil {
		t.Fatalf("non-zero exit is a reading, not an error: %v", err)
	}
	if res.State != StateStarting {
		t.Fatalf("expected starting, got %v", res.State)
	}
	if res.Code != 1 {
		t.Fatalf("expected exit code 1, got %d", res.Code)
	}
}

func TestExecProbeShellMetacharacters(t *testing.T) {
	requireUnix(t)
	res, err := ExecProbe{Command: "test -n \"$HOME\" && true"}.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateHealthy {
		t.Fatalf("expected healthy via shell, got %+v", res)
	}
}

func TestExecProbeMissingBinary(t *testing.T) {
	requireUnix(t)
	res, err := ExecProbe{Command: "/no/such/binary-xyz"}.Check(context.Background())
	if err == nil {
		t.Fatal("expected probe error for missing binary")
	}
	if res.State != StateUnknown {
		t.Fatalf("expected unknown on probe error, got %v", res.State)
	}
}

func TestBuildShellAwareCommand(t *testing.T) {
	requireUnix(t)
	ctx := context.Background()

	plain := buildShellAwareCommand(ctx, "pg_isready -h localhost")
	if plain.Args[0] == "/bin/sh" {
		t.Fatalf("plain command must not go through a shell: %v", plain.Args)
	}

	shell := buildShellAwareCommand(ctx, "echo ok | grep ok")
	if shell.Args[0] != "/bin/sh" || shell.Args[1] != "-c" {
		t.Fatalf("metacharacters must route through /bin/sh -c: %v", shell.Args)
	}
}
