// Package testrunner runs deployment test suites against an application
// package and exposes their progress as a log, a status and a report.
package testrunner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSuite is returned when a suite name cannot be parsed.
	ErrUnknownSuite = errors.New("unknown test suite")
	// ErrSuiteNotConfigured is returned when a runner has no command for a suite.
	ErrSuiteNotConfigured = errors.New("test suite not configured")
	// ErrRunInProgress is returned when a run is started while another is running.
	ErrRunInProgress = errors.New("test run already in progress")
	// ErrUnsupported is returned by runners that cannot run tests in this environment.
	ErrUnsupported = errors.New("testing is not supported")
)

// Status is the state of the most recent run.
type Status int

const (
	NotStarted Status = iota
	Running
	Failure
	Error
	Success
)

var statusNames = [...]string{"NOT_STARTED", "RUNNING", "FAILURE", "ERROR", "SUCCESS"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether the run has finished.
func (s Status) Terminal() bool {
	return s == Failure || s == Error || s == Success
}

func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if string(b) == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("invalid status %q", b)
}

// Suite is one stage of deployment testing.
type Suite int

const (
	SystemTest Suite = iota
	StagingSetupTest
	StagingTest
	ProductionTest
)

var suiteNames = [...]struct{ name, path string }{
	{"SYSTEM_TEST", "system"},
	{"STAGING_SETUP_TEST", "staging-setup"},
	{"STAGING_TEST", "staging"},
	{"PRODUCTION_TEST", "production"},
}

// AllSuites lists the suites in deployment order.
func AllSuites() []Suite {
	return []Suite{SystemTest, StagingSetupTest, StagingTest, ProductionTest}
}

func (s Suite) valid() bool { return s >= 0 && int(s) < len(suiteNames) }

func (s Suite) String() string {
	if !s.valid() {
		return fmt.Sprintf("Suite(%d)", int(s))
	}
	return suiteNames[s].name
}

// Path is the form used in URLs and config keys, e.g. "staging-setup".
func (s Suite) Path() string {
	if !s.valid() {
		return ""
	}
	return suiteNames[s].path
}

// ParseSuite accepts either the constant form (STAGING_SETUP_TEST) or the
// path form (staging-setup), case-insensitively.
func ParseSuite(v string) (Suite, error) {
	for i, n := range suiteNames {
		if strings.EqualFold(v, n.name) || strings.EqualFold(v, n.path) {
			return Suite(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSuite, v)
}

func (s Suite) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("invalid suite %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Suite) UnmarshalText(b []byte) error {
	v, err := ParseSuite(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
