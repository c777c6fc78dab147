package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

// Run is one recorded lint run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	RulesPath  string    `json:"rules_path"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`

	Records         int `json:"records"`
	FieldViolations int `json:"field_violations"`
	GroupViolations int `json:"group_violations"`
	TypeMismatches  int `json:"type_mismatches"`

	// Report is the encoded report; empty for failed runs.
	Report json.RawMessage `json:"report,omitempty"`
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists run history.
type Store interface {
	// Save records a run. Saving an existing id replaces it.
	Save(ctx context.Context, run *Run) error

	// Get returns the run with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns the most recent runs first, without their reports.
	// limit <= 0 means the default of 20.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Prune deletes runs started before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// DefaultListLimit is used by List when limit <= 0.
const DefaultListLimit = 20

// StorageError is a failure in a history backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
