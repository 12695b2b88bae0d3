package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSolution marks a COMPLETED snapshot that carries no solution
	// id. The tracker enters StateInconsistent rather than reporting success.
	ErrMissingSolution = errors.New("job completed without a solution")
	// ErrFetchInFlight is the duplicate-fetch guard: a solution fetch for the
	// tracked job is already running, so the caller skipped.
	ErrFetchInFlight  = errors.New("solution fetch already in flight")
	ErrNoJob          = errors.New("no job is being tracked")
	ErrNothingToRetry = errors.New("no completed job to retry")
)

// JobFailedError is surfaced when the server reports FAILED.
type JobFailedError struct {
	JobID   int64
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %d failed", e.JobID)
	}
	return fmt.Sprintf("job %d failed: %s", e.JobID, e.Message)
}
