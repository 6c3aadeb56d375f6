package services

import (
	"sync"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// BuildReport collects progress and messages of the running build.
// It is written by the pipeline and read concurrently by status callers.
type BuildReport struct {
	mu     sync.RWMutex
	status entities.BuildStatus
}

// NewBuildReport creates an idle report
func NewBuildReport() *BuildReport {
	return &BuildReport{}
}

// Start resets messages and progress for a new run.
func (r *BuildReport) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = true
	r.status.ProgressCurrent = 0
	r.status.ProgressTotal = total
	r.status.Information = nil
	r.status.Warnings = nil
	r.status.Errors = nil
}

// Advance increments the progress counter
func (r *BuildReport) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.ProgressCurrent++
}

// Info records an informational message
func (r *BuildReport) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Information = append(r.status.Information, msg)
}

// Warn records a warning
func (r *BuildReport) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Warnings = append(r.status.Warnings, msg)
}

// Error records an error. Any error fails the run.
func (r *BuildReport) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Errors = append(r.status.Errors, msg)
}

// HasErrors reports whether the current run recorded an error
func (r *BuildReport) HasErrors() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.status.Errors) > 0
}

// Finish marks the run as done; a run without errors updates the last success time.
func (r *BuildReport) Finish(at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = false
	ok := len(r.status.Errors) == 0
	if ok {
		r.status.LastSuccess = at
	}
	return ok
}

// Snapshot returns a copy that is safe to read while the run continues.
func (r *BuildReport) Snapshot() entities.BuildStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	s.Information = append([]string(nil), r.status.Information...)
	s.Warnings = append([]string(nil), r.status.Warnings...)
	s.Errors = append([]string(nil), r.status.Errors...)
	return s
}
