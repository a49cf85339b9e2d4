package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunCommandPrintsGenerationReports(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"run", "--store", "memory", "--cycles", "20", "--delay", "0s", "--seed", "3", "--show-top", "--top-limit", "2", "--log-level", "warn"}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run command: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "generation 1:") || !strings.Contains(out, "generation 2:") {
		t.Fatalf("expected generation reports, got:\n%s", out)
	}
	if !strings.Contains(out, "run_id=") || !strings.Contains(out, "cycles=20") {
		t.Fatalf("missing run summary line:\n%s", out)
	}
	if strings.Count(out, "rank=") != 2 {
		t.Fatalf("expected two top rows, got:\n%s", out)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected no warnings, got:\n%s", stderr.String())
	}
}

func TestRunCommandStopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	if err := run(ctx, []string{"run", "--store", "memory", "--delay", "1ms"}, &stdout, &stderr); err != nil {
		t.Fatalf("cancelled run should exit cleanly: %v", err)
	}
	if !strings.Contains(stdout.String(), "run_id=") {
		t.Fatalf("missing run summary line:\n%s", stdout.String())
	}
}

func TestRunCommandShowsTopAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	args := []string{"run", "--store", "memory", "--delay", "1ms", "--show-top", "--top-limit", "3"}
	if err := run(ctx, args, &stdout, &stderr); err != nil {
		t.Fatalf("cancelled run with --show-top should exit cleanly: %v", err)
	}
	if !strings.Contains(stdout.String(), "rank=1") {
		t.Fatalf("expected top rows after cancellation:\n%s", stdout.String())
	}
}

func TestUnknownCommandFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"benchmark"}, &stdout, &stderr); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestInvalidLogLevelFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"runs", "--store", "memory", "--log-level", "loud"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}

func TestLookupCommandsRequireRun(t *testing.T) {
	for _, name := range []string{"diagnostics", "lineage", "top"} {
		var stdout, stderr bytes.Buffer
		err := run(context.Background(), []string{name, "--store", "memory", "--latest"}, &stdout, &stderr)
		if err == nil || !strings.Contains(err.Error(), "no runs") {
			t.Fatalf("%s: expected no runs error, got %v", name, err)
		}
	}
}
