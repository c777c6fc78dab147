package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Check statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrSkipped is returned by a check whose component is not configured.
var ErrSkipped = errors.New("not configured")

// CheckFunc checks one dependency of a run. It returns nil when the
// dependency is usable, ErrSkipped (possibly wrapped) when it is not
// configured, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of every registered check, in registration order.
type Report struct {
	// Status is StatusOK unless at least one check failed.
	Status    string        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
}

// Healthy reports whether no check failed.
func (r *Report) Healthy() bool {
	return r.Status == StatusOK
}

type namedCheck struct {
	name  string
	check CheckFunc
}

// Checker runs the checks that tell whether a run can succeed: the rule
// document compiles, the source opens, the report destination and the
// history database are writable.
type Checker struct {
	mu     sync.RWMutex
	checks []namedCheck

	// Timeout for individual checks
	checkTimeout time.Duration
}

// New creates a checker. If timeout is 0, each check gets 5 seconds.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{checkTimeout: checkTimeout}
}

// Register adds a named check. A check with the same name is replaced in
// place.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].check = check
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// Names returns the registered check names in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.checks))
	for i, nc := range c.checks {
		names[i] = nc.name
	}
	return names
}

// Run runs every check concurrently and returns their results in
// registration order.
func (c *Checker) Run(ctx context.Context) *Report {
	c.mu.RLock()
	checks := make([]namedCheck, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, nc := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.runCheck(ctx, nc)
		}()
	}
	wg.Wait()

	status := StatusOK
	for _, r := range results {
		if r.Status == StatusFailed {
			status = StatusFailed
		}
	}

	return &Report{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now(),
	}
}

// runCheck executes a single check with a timeout.
func (c *Checker) runCheck(ctx context.Context, nc namedCheck) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	// The check runs in its own goroutine so a check that ignores its
	// context still times out.
	errChan := make(chan error, 1)
	go func() {
		errChan <- nc.check(checkCtx)
	}()

	result := CheckResult{Name: nc.name}
	select {
	case err := <-errChan:
		switch {
		case err == nil:
			result.Status = StatusOK
		case errors.Is(err, ErrSkipped):
			result.Status = StatusSkipped
			result.Message = err.Error()
		default:
			result.Status = StatusFailed
			result.Message = err.Error()
		}
	case <-checkCtx.Done():
		result.Status = StatusFailed
		result.Message = "check timed out"
	}
	result.Duration = time.Since(start)
	return result
}
