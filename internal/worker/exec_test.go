package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"colorwerkz/internal/method"
	"colorwerkz/internal/transfer"
)

// writeWorker writes an executable shell script posing as a worker.
func writeWorker(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func execProfile(workerPath string, timeout time.Duration) *method.Profile {
	return &method.Profile{
		Name:           "opencv_baseline",
		Worker:         workerPath,
		DefaultTimeout: timeout,
		ReadyThreshold: 2.0,
	}
}

func execJob() transfer.Job {
	return transfer.Job{
		ID:          "j1",
		SourceImage: "/workspace/in.png",
		FrameColor:  "RAL 7016",
		DrawerColor: "RAL 9010",
		Options: transfer.JobOptions{
			OutputPath:     "/workspace/out.png",
			ReadyThreshold: 2.0,
		},
	}
}

func TestExecInvokeSuccess(t *testing.T) {
	t.Parallel()

	path := writeWorker(t, `echo '{"output_image": "/workspace/out.png", "delta_e": 1.2, "image_size": [100, 200]}'`)
	invoker := NewExecInvoker(Config{}, nil)

	res := invoker.Invoke(context.Background(), execProfile(path, 10*time.Second), execJob())

	if !res.Success {
		t.Fatalf("expected success, got %+v", res.Failure)
	}
	if res.DeltaE != 1.2 {
		t.Errorf("DeltaE = %v, want 1.2", res.DeltaE)
	}
	if !res.ManufacturingReady {
		t.Error("1.2 under threshold 2.0 should be ready")
	}
	if res.Elapsed <= 0 {
		t.Error("Elapsed should be positive")
	}
}

func TestExecInvokeReceivesArgs(t *testing.T) {
	t.Parallel()

	// The worker echoes its second argument back as the output image path,
	// proving parameters arrive as one JSON argument after --args.
	path := writeWorker(t, `printf '{"output_image": %s, "delta_e": 1.0}' "$(printf '%s' "$2" | sed 's/.*"source_image":\("[^"]*"\).*/\1/')"`)
	invoker := NewExecInvoker(Config{}, nil)

	res := invoker.Invoke(context.Background(), execProfile(path, 10*time.Second), execJob())

	if !res.Success {
		t.Fatalf("expected success, got %+v", res.Failure)
	}
	if res.OutputImage != "/workspace/in.png" {
		t.Errorf("worker saw source_image %q, want /workspace/in.png", res.OutputImage)
	}
}

func TestExecInvokeExecutionFailed(t *testing.T) {
	t.Parallel()

	path := writeWorker(t, "echo 'boom: no usable colors' >&2\nexit 3")
	invoker := NewExecInvoker(Config{}, nil)

	res := invoker.Invoke(context.Background(), execProfile(path, 10*time.Second), execJob())

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Failure.Classification != transfer.ClassExecutionFailed {
		t.Errorf("classification = %q, want execution_failed", res.Failure.Classification)
	}
	if res.Failure.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.Failure.ExitCode)
	}
	if !strings.Contains(res.Failure.Detail, "boom") {
		t.Errorf("Detail = %q, want stderr tail", res.Failure.Detail)
	}
}

func TestExecInvokeTimeout(t *testing.T) {
	t.Parallel()

	path := writeWorker(t, "sleep 30")
	invoker := NewExecInvoker(Config{KillGrace: time.Second}, nil)

	start := time.Now()
	res := invoker.Invoke(context.Background(), execProfile(path, 200*time.Millisecond), execJob())

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Failure.Classification != transfer.ClassTimeout {
		t.Errorf("classification = %q, want timeout", res.Failure.Classification)
	}
	if res.Failure.Timeout != 200*time.Millisecond {
		t.Errorf("Timeout = %v, want the configured deadline", res.Failure.Timeout)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("invocation took %v, the worker should be killed at the deadline", elapsed)
	}
}

func TestExecInvokeJobTimeoutOverridesProfile(t *testing.T) {
	t.Parallel()

	path := writeWorker(t, "sleep 30")
	invoker := NewExecInvoker(Config{KillGrace: time.Second}, nil)

	job := execJob()
	job.Options.Timeout = 100 * time.Millisecond

	res := invoker.Invoke(context.Background(), execProfile(path, time.Hour), job)

	if res.Success || res.Failure.Classification != transfer.ClassTimeout {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if res.Failure.Timeout != 100*time.Millisecond {
		t.Errorf("Timeout = %v, want the per-job override", res.Failure.Timeout)
	}
}

func TestExecInvokeOutputLimitExceeded(t *testing.T) {
	t.Parallel()

	// Floods stdout until the cap kills it.
	path := writeWorker(t, "exec yes aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	invoker := NewExecInvoker(Config{MaxOutputBytes: 4096, KillGrace: time.Second}, nil)

	start := time.Now()
	res := invoker.Invoke(context.Background(), execProfile(path, time.Minute), execJob())

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Failure.Classification != transfer.ClassOutputLimitExceeded {
		t.Errorf("classification = %q, want output_limit_exceeded", res.Failure.Classification)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("invocation took %v, the flood should be cut off promptly", elapsed)
	}
}

func TestExecInvokeMalformedOutput(t *testing.T) {
	t.Parallel()

	path := writeWorker(t, `echo 'Processing image...'`)
	invoker := NewExecInvoker(Config{}, nil)

	res := invoker.Invoke(context.Background(), execProfile(path, 10*time.Second), execJob())

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Failure.Classification != transfer.ClassMalformedOutput {
		t.Errorf("classification = %q, want malformed_output", res.Failure.Classification)
	}
}

func TestExecInvokeSpawnFailed(t *testing.T) {
	t.Parallel()

	invoker := NewExecInvoker(Config{}, nil)
	profile := execProfile(filepath.Join(t.TempDir(), "missing.sh"), 10*time.Second)

	res := invoker.Invoke(context.Background(), profile, execJob())

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Failure.Classification != transfer.ClassSpawnFailed {
		t.Errorf("classification = %q, want spawn_failed", res.Failure.Classification)
	}
}

func TestExecReady(t *testing.T) {
	t.Parallel()

	existing := writeWorker(t, "exit 0")

	ready := NewExecInvoker(Config{}, []method.Profile{{Name: "ok", Worker: existing}})
	if err := ready.Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v, want nil", err)
	}

	missing := NewExecInvoker(Config{}, []method.Profile{{Name: "gone", Worker: "/nonexistent/worker.py"}})
	if err := missing.Ready(context.Background()); err == nil {
		t.Error("Ready() should fail for a missing worker")
	}
}

func TestCappedBuffer(t *testing.T) {
	t.Parallel()

	fired := 0
	buf := NewCappedBuffer(10, func() { fired++ })

	if n, err := buf.Write([]byte("hello")); n != 5 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if buf.Exceeded() {
		t.Error("buffer under the limit should not be exceeded")
	}

	// Crossing the limit keeps the prefix, marks exceeded, fires once
	if n, err := buf.Write([]byte("worldwide")); n != 9 || err != nil {
		t.Fatalf("Write() past limit = %d, %v", n, err)
	}
	if !buf.Exceeded() {
		t.Error("buffer should be exceeded")
	}
	if got := string(buf.Bytes()); got != "helloworld" {
		t.Errorf("Bytes() = %q, want the 10-byte prefix", got)
	}
	if fired != 1 {
		t.Errorf("onExceed fired %d times, want 1", fired)
	}

	// Later writes are swallowed without firing again
	if n, err := buf.Write([]byte("more")); n != 4 || err != nil {
		t.Fatalf("Write() after exceed = %d, %v", n, err)
	}
	if fired != 1 {
		t.Errorf("onExceed fired %d times after extra write, want 1", fired)
	}
}
