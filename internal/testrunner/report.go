package testrunner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
)

// go test -json actions.
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// TestEvent is one line of `go test -json` output.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test,omitempty"`
	Output  string    `json:"Output,omitempty"`
	Elapsed float64   `json:"Elapsed,omitempty"`
}

// TestFailure is a failed test with the output it produced.
type TestFailure struct {
	Test    string `json:"test"`
	Package string `json:"package"`
	Output  string `json:"output"`
}

// Report summarises a run.
type Report struct {
	RunID    string        `json:"runId"`
	Suite    Suite         `json:"suite"`
	Status   Status        `json:"status"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Failures []TestFailure `json:"failures"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end,omitzero"`
}

func (r *Report) clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Failures = append([]TestFailure{}, r.Failures...)
	return &c
}

// Total is the number of tests that finished.
func (r *Report) Total() int { return r.Passed + r.Failed + r.Skipped }

type testKey struct{ pkg, test string }

// collector turns raw output lines into log entries and report counts.
type collector struct {
	report *Report
	output map[testKey]*strings.Builder
}

func newCollector(report *Report) *collector {
	return &collector{report: report, output: make(map[testKey]*strings.Builder)}
}

// line handles one output line. It returns the log entry for it; ok is false
// when the line produces no entry.
func (c *collector) line(raw string) (level slog.Level, msg string, ok bool) {
	var ev TestEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil || ev.Action == "" {
		text := strings.TrimRight(stripansi.Strip(raw), " \r\n")
		return slog.LevelInfo, text, text != ""
	}
	return c.event(ev)
}

func (c *collector) event(ev TestEvent) (slog.Level, string, bool) {
	key := testKey{ev.Package, ev.Test}
	switch ev.Action {
	case ActionOutput:
		text := stripansi.Strip(ev.Output)
		if ev.Test != "" {
			b, ok := c.output[key]
			if !ok {
				b = &strings.Builder{}
				c.output[key] = b
			}
			b.WriteString(text)
		}
		text = strings.TrimRight(text, " \r\n")
		return slog.LevelDebug, text, text != ""
	case ActionPass:
		if ev.Test == "" {
			return slog.LevelInfo, fmt.Sprintf("ok %s (%.2fs)", ev.Package, ev.Elapsed), true
		}
		c.report.Passed++
		delete(c.output, key)
		return slog.LevelInfo, fmt.Sprintf("PASS %s (%.2fs)", ev.Test, ev.Elapsed), true
	case ActionSkip:
		if ev.Test == "" {
			return slog.LevelInfo, fmt.Sprintf("no tests in %s", ev.Package), true
		}
		c.report.Skipped++
		delete(c.output, key)
		return slog.LevelWarn, fmt.Sprintf("SKIP %s", ev.Test), true
	case ActionFail:
		if ev.Test == "" {
			return slog.LevelError, fmt.Sprintf("FAIL %s (%.2fs)", ev.Package, ev.Elapsed), true
		}
		c.report.Failed++
		f := TestFailure{Test: ev.Test, Package: ev.Package}
		if b, ok := c.output[key]; ok {
			f.Output = b.String()
			delete(c.output, key)
		}
		c.report.Failures = append(c.report.Failures, f)
		return slog.LevelError, fmt.Sprintf("FAIL %s (%.2fs)", ev.Test, ev.Elapsed), true
	}
	return 0, "", false
}
