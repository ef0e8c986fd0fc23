package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"colorwerkz/internal/method"
	"colorwerkz/internal/transfer"
)

// Config holds invocation limits shared by all runtimes.
type Config struct {
	MaxOutputBytes int           // Cap on captured stdout/stderr per stream
	KillGrace      time.Duration // Bounded wait after forced termination
}

func (c Config) withDefaults() Config {
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = 1 << 20
	}
	if c.KillGrace <= 0 {
		c.KillGrace = 5 * time.Second
	}
	return c
}

// ExecInvoker runs workers as local OS processes, mirroring the original
// subprocess model. Safe for concurrent use: each invocation owns its
// process, buffers, and timeout clock.
type ExecInvoker struct {
	cfg      Config
	profiles []method.Profile // for readiness probing only
}

// NewExecInvoker creates a process-based invoker.
func NewExecInvoker(cfg Config, profiles []method.Profile) *ExecInvoker {
	return &ExecInvoker{cfg: cfg.withDefaults(), profiles: profiles}
}

// Invoke runs one worker process for the job and classifies the outcome.
// It never returns an error; every failure mode becomes a failure Result.
func (e *ExecInvoker) Invoke(ctx context.Context, profile *method.Profile, job transfer.Job) transfer.Result {
	start := time.Now()

	timeout := job.Options.Timeout
	if timeout <= 0 {
		timeout = profile.DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, profile.Worker, "--args", string(EncodeArgs(job)))
	stdout := NewCappedBuffer(e.cfg.MaxOutputBytes, cancel)
	stderr := NewCappedBuffer(e.cfg.MaxOutputBytes, cancel)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Bound the wait after the context kills the process, so a worker that
	// is slow to die (or holds pipes open) cannot hang the invocation.
	cmd.WaitDelay = e.cfg.KillGrace

	if err := cmd.Start(); err != nil {
		return Spawn(job, profile, time.Since(start), err)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	switch {
	case stdout.Exceeded() || stderr.Exceeded():
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassOutputLimitExceeded,
			Detail:         fmt.Sprintf("worker output exceeded %d bytes", e.cfg.MaxOutputBytes),
		})

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassTimeout,
			Detail:         fmt.Sprintf("worker did not finish within %s", timeout),
			Timeout:        timeout,
		})

	case waitErr != nil:
		failure := transfer.Failure{
			Classification: transfer.ClassExecutionFailed,
			Detail:         Tail(stderr.Bytes(), MaxStderrTail),
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			failure.ExitCode = exitErr.ExitCode()
		}
		if failure.Detail == "" {
			failure.Detail = waitErr.Error()
		}
		return transfer.NewFailure(job, profile, elapsed, failure)
	}

	return ResultFromOutput(job, profile, stdout.Bytes(), elapsed)
}

// Ready reports whether every configured worker executable is present and
// executable. Implements health.ReadinessChecker.
func (e *ExecInvoker) Ready(ctx context.Context) error {
	for _, p := range e.profiles {
		if p.Worker == "" {
			continue
		}
		info, err := os.Stat(p.Worker)
		if err != nil {
			return fmt.Errorf("worker for %s: %w", p.Name, err)
		}
		if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			return fmt.Errorf("worker for %s: %s is not executable", p.Name, p.Worker)
		}
	}
	return nil
}

// CappedBuffer captures a stream up to a limit. The first write past the
// limit marks the buffer exceeded and fires onExceed, which invokers wire to
// the func that kills the worker. Writes keep succeeding so the copier
// goroutine feeding the buffer never blocks the shutdown path.
type CappedBuffer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	limit    int
	over     bool
	onExceed func()
}

// NewCappedBuffer creates a buffer with the given byte limit.
func NewCappedBuffer(limit int, onExceed func()) *CappedBuffer {
	return &CappedBuffer{limit: limit, onExceed: onExceed}
}

func (b *CappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.over {
		return len(p), nil
	}
	if b.buf.Len()+len(p) > b.limit {
		b.buf.Write(p[:b.limit-b.buf.Len()])
		b.over = true
		if b.onExceed != nil {
			b.onExceed()
		}
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// Bytes returns the captured prefix of the stream.
func (b *CappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

// Exceeded reports whether the stream overran the limit.
func (b *CappedBuffer) Exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.over
}

var _ transfer.Invoker = (*ExecInvoker)(nil)
