package testrunner

import (
	"context"
	"time"
)

// TestRunner runs test suites one at a time.
type TestRunner interface {
	// Log returns the records of the current run with ID greater than after.
	Log(after int64) []LogRecord
	// Status returns the status of the current, or most recent, run.
	Status() Status
	// Test starts suite with the given config and returns without waiting
	// for it to finish. It fails without changing state when the run
	// cannot start.
	Test(ctx context.Context, suite Suite, config []byte) error
}

// Supporter is implemented by runners that can be unavailable.
type Supporter interface {
	Supported() bool
}

// Reporter is implemented by runners that produce a report.
type Reporter interface {
	Report() *Report
}

// IsSupported reports whether r can run tests. Runners that do not
// implement Supporter are supported.
func IsSupported(r TestRunner) bool {
	if s, ok := r.(Supporter); ok {
		return s.Supported()
	}
	return true
}

// ReportOf returns r's report, or nil when r has none.
func ReportOf(r TestRunner) *Report {
	if rp, ok := r.(Reporter); ok {
		return rp.Report()
	}
	return nil
}

// Select returns the first supported runner. With none, it returns a runner
// that rejects every start.
func Select(runners ...TestRunner) TestRunner {
	for _, r := range runners {
		if r != nil && IsSupported(r) {
			return r
		}
	}
	return Unsupported{}
}

// Unsupported is the runner used where testing is unavailable.
type Unsupported struct{}

func (Unsupported) Log(int64) []LogRecord { return nil }

func (Unsupported) Status() Status { return NotStarted }

func (Unsupported) Test(context.Context, Suite, []byte) error { return ErrUnsupported }

func (Unsupported) Supported() bool { return false }

// Wait polls r every interval until its status is terminal and returns it.
// A runner that has not started returns NotStarted at once.
func Wait(ctx context.Context, r TestRunner, interval time.Duration) (Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s := r.Status()
		if s != Running {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-ticker.C:
		}
	}
}
