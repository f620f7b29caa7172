// Package errors defines the error taxonomy shared by the build and dev
// pipelines: fatal configuration errors, recoverable per-unit build
// failures, best-effort network errors and not-found conditions.
package errors

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// UnitFailure records one unit of a batch that was skipped.
type UnitFailure struct {
	Stage     string
	Unit      string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface
func (uf *UnitFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", uf.Stage, uf.Unit, uf.Err)
}

// Unwrap returns the underlying error.
func (uf *UnitFailure) Unwrap() error {
	return uf.Err
}

// ErrorCollector collects per-unit failures so a batch can continue and
// report them at the end.
type ErrorCollector struct {
	failures []UnitFailure
	errors   []error
	mutex    sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		failures: make([]UnitFailure, 0),
		errors:   make([]error, 0),
	}
}

// AddUnit records a skipped unit.
func (ec *ErrorCollector) AddUnit(stage, unit string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.failures = append(ec.failures, UnitFailure{
		Stage:     stage,
		Unit:      unit,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// AddError adds a general error to the collector
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// Failures returns a copy of the recorded unit failures.
func (ec *ErrorCollector) Failures() []UnitFailure {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]UnitFailure, len(ec.failures))
	copy(result, ec.failures)
	return result
}

// FailuresByStage returns the failures recorded for one stage.
func (ec *ErrorCollector) FailuresByStage(stage string) []UnitFailure {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var result []UnitFailure
	for _, f := range ec.failures {
		if f.Stage == stage {
			result = append(result, f)
		}
	}
	return result
}

// GetAllErrors returns all collected errors (unit failures first).
func (ec *ErrorCollector) GetAllErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	all := make([]error, 0, len(ec.failures)+len(ec.errors))
	for i := range ec.failures {
		f := ec.failures[i]
		all = append(all, &f)
	}
	all = append(all, ec.errors...)
	return all
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.failures) > 0 || len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.failures = ec.failures[:0]
	ec.errors = ec.errors[:0]
}

// Summary formats the collected failures one per line.
func (ec *ErrorCollector) Summary() string {
	errs := ec.GetAllErrors()
	if len(errs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, "  - "+err.Error())
	}
	return fmt.Sprintf("%d unit(s) failed:\n%s", len(errs), strings.Join(lines, "\n"))
}
