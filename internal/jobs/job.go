// Package jobs tracks submitted datasets through the pending, processing,
// completed and failed states and runs their analysis on a worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job may move from one status to another.
// Complete requires processing; fail is allowed before processing starts so
// jobs that cannot be scheduled still reach a terminal state.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusProcessing:
		return from == StatusPending
	case StatusCompleted:
		return from == StatusProcessing
	case StatusFailed:
		return from == StatusPending || from == StatusProcessing
	}
	return false
}

var (
	ErrNotFound          = errors.New("dataset not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotCompleted      = errors.New("dataset analysis not completed")
	ErrClosed            = errors.New("job service closed")
	ErrDuplicate         = errors.New("job already exists")
)

// Job is one submitted dataset.
type Job struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Filename    string           `json:"filename"`
	FilePath    string           `json:"file_path"`
	UploadedAt  time.Time        `json:"uploaded_at"`
	Status      Status           `json:"status"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
	Result      *pipeline.Result `json:"result,omitempty"`
}

// Clone returns a copy that shares nothing mutable with j except Result,
// which is never modified once set.
func (j *Job) Clone() *Job {
	out := *j
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}

func (j *Job) transition(to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

// Start moves a pending job to processing.
func (j *Job) Start() error {
	return j.transition(StatusProcessing)
}

// Complete stores the result together with the completed status.
func (j *Job) Complete(res *pipeline.Result, at time.Time) error {
	if res == nil {
		return errors.New("complete: nil result")
	}
	if err := j.transition(StatusCompleted); err != nil {
		return err
	}
	j.Result = res
	j.CompletedAt = &at
	return nil
}

// Fail records the error message with the failed status.
func (j *Job) Fail(msg string) error {
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	j.Error = msg
	return nil
}

// Store persists jobs. Implementations must be safe for concurrent use and
// apply transitions atomically.
type Store interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// ListByUser returns the user's jobs, newest upload first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Job, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, res *pipeline.Result, at time.Time) error
	Fail(ctx context.Context, id string, msg string) error
}

// Runner runs the analysis of one file.
type Runner interface {
	Run(ctx context.Context, path string) (*pipeline.Result, error)
}
