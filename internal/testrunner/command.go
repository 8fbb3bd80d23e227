package testrunner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Environment variables set for every suite command.
const (
	EnvConfig = "SDGUIDE_TEST_CONFIG"
	EnvSuite  = "SDGUIDE_TEST_SUITE"
	EnvRunID  = "SDGUIDE_TEST_RUN_ID"
)

// waitDelay bounds how long a stopped command's children may hold its output open.
const waitDelay = 5 * time.Second

// SuiteCommand is the process run for one suite.
type SuiteCommand struct {
	Command []string
	Dir     string
	Env     []string
	// Timeout of zero means no limit.
	Timeout time.Duration
}

// CommandRunner runs each suite as an external command, typically
// `go test -json ./...` in a system test module. Output in go test JSON
// form is counted into the report; other output is logged as is.
type CommandRunner struct {
	suites   map[Suite]SuiteCommand
	logger   *slog.Logger
	metrics  *Metrics
	lookPath func(string) (string, error)

	log LogStore

	mu     sync.Mutex
	status Status
	report *Report
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandRunner creates a runner for the given suites. logger and
// metrics may be nil.
func NewCommandRunner(suites map[Suite]SuiteCommand, logger *slog.Logger, metrics *Metrics) *CommandRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRunner{
		suites:   suites,
		logger:   logger,
		metrics:  metrics,
		lookPath: exec.LookPath,
	}
}

// Supported reports whether at least one suite is configured with an
// executable that can be found.
func (r *CommandRunner) Supported() bool {
	for _, sc := range r.suites {
		if len(sc.Command) == 0 {
			continue
		}
		if _, err := r.lookPath(sc.Command[0]); err == nil {
			return true
		}
	}
	return false
}

func (r *CommandRunner) Log(after int64) []LogRecord { return r.log.After(after) }

func (r *CommandRunner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Report returns a copy of the current run's report, or nil before the
// first run.
func (r *CommandRunner) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report.clone()
}

// Test starts suite. The run outlives ctx's cancellation but keeps its
// values; use Close to stop it.
func (r *CommandRunner) Test(ctx context.Context, suite Suite, config []byte) error {
	sc, ok := r.suites[suite]
	if !ok || len(sc.Command) == 0 {
		return fmt.Errorf("%w: %s", ErrSuiteNotConfigured, suite)
	}
	if !r.Supported() {
		return ErrUnsupported
	}

	r.mu.Lock()
	if r.status == Running {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	report := &Report{RunID: runID, Suite: suite, Status: Running, Start: time.Now(), Failures: []TestFailure{}}
	r.status = Running
	r.report = report
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.log.Reset()
	r.mu.Unlock()

	r.metrics.recordStart()
	cfg := append([]byte(nil), config...)
	go func() {
		defer close(done)
		defer cancel()
		r.run(runCtx, runID, suite, sc, cfg, report)
	}()
	return nil
}

// Close stops a run in progress and waits for it to finish.
func (r *CommandRunner) Close() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (r *CommandRunner) logf(runID string, level slog.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Append(level, msg)
	r.metrics.recordLog()
	r.logger.Log(context.Background(), level, msg, "run_id", runID)
}

func (r *CommandRunner) run(ctx context.Context, runID string, suite Suite, sc SuiteCommand, config []byte, report *Report) {
	start := time.Now()
	r.logf(runID, slog.LevelInfo, "Starting %s run %s: %s", suite, runID, strings.Join(sc.Command, " "))

	status, err := r.execute(ctx, runID, suite, sc, config, report)
	switch {
	case err != nil:
		r.logf(runID, slog.LevelError, "%s", err)
	case status == Failure:
		r.logf(runID, slog.LevelError, "%s failed: %d passed, %d failed, %d skipped",
			suite, report.Passed, report.Failed, report.Skipped)
	default:
		r.logf(runID, slog.LevelInfo, "%s succeeded: %d passed, %d skipped",
			suite, report.Passed, report.Skipped)
	}

	// Metrics settle before the status turns terminal.
	r.mu.Lock()
	report.Status = status
	report.End = time.Now()
	r.metrics.recordEnd(suite, status, time.Since(start), report)
	r.status = status
	r.mu.Unlock()
}

// execute runs the command. A non-nil error always comes with status Error.
func (r *CommandRunner) execute(ctx context.Context, runID string, suite Suite, sc SuiteCommand, config []byte, report *Report) (Status, error) {
	cfgPath, err := writeConfig(config)
	if err != nil {
		return Error, err
	}
	defer os.Remove(cfgPath)

	if sc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, sc.Command[0], sc.Command[1:]...)
	cmd.Dir = sc.Dir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), sc.Env...)
	cmd.Env = append(cmd.Env,
		EnvConfig+"="+cfgPath,
		EnvSuite+"="+suite.String(),
		EnvRunID+"="+runID,
	)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		r.collect(pr, runID, report)
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		<-collected
		if stopErr := stopped(ctx, suite, sc.Timeout); stopErr != nil {
			return Error, stopErr
		}
		return Error, fmt.Errorf("starting %s: %w", sc.Command[0], err)
	}
	waitErr := cmd.Wait()
	pw.Close()
	<-collected

	if waitErr == nil {
		return Success, nil
	}
	if stopErr := stopped(ctx, suite, sc.Timeout); stopErr != nil {
		return Error, stopErr
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return Failure, nil
	}
	return Error, fmt.Errorf("running %s: %w", sc.Command[0], waitErr)
}

// stopped reports why ctx ended the run, or nil if it did not.
func stopped(ctx context.Context, suite Suite, timeout time.Duration) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s timed out after %s", suite, timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s was cancelled", suite)
	}
	return nil
}

func (r *CommandRunner) collect(out io.Reader, runID string, report *Report) {
	c := newCollector(report)
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		r.mu.Lock()
		level, msg, ok := c.line(scanner.Text())
		r.mu.Unlock()
		if ok {
			r.logf(runID, level, "%s", msg)
		}
	}
	if err := scanner.Err(); err != nil {
		r.logf(runID, slog.LevelWarn, "Reading test output: %s", err)
		// Drain so the command does not block on a full pipe.
		_, _ = io.Copy(io.Discard, out)
	}
}

func writeConfig(config []byte) (string, error) {
	f, err := os.CreateTemp("", "sdguide-test-config-*.json")
	if err != nil {
		return "", fmt.Errorf("creating test config: %w", err)
	}
	if _, err := f.Write(config); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing test config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing test config: %w", err)
	}
	return f.Name(), nil
}
