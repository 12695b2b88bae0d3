// Package jobs tracks optimization jobs from submission to a displayed
// solution.
//
// # Lifecycle
//
// A Tracker holds at most one job. Open (or Submit) starts tracking and,
// for a non-terminal job, arms a polling Task that re-fetches the job every
// interval. Each snapshot flows through a single update path:
//
//	PENDING/PROCESSING  progress is presented, polling continues
//	COMPLETED           polling stops, the solution is fetched once and
//	                    handed to the store, which clears the active job
//	FAILED              polling stops, a *JobFailedError is presented
//	CANCELLED           polling stops, the active job is cleared
//
// A COMPLETED snapshot without a solution id moves the tracker to
// StateInconsistent and surfaces ErrMissingSolution.
//
// # Concurrency
//
// Polling runs on clock timers, so snapshots may arrive from a timer
// goroutine while a caller applies a cancel confirmation. The tracker keeps
// one in-flight solution fetch; a second caller that arrives during the
// fetch skips it, and one that arrives after it has succeeded finds nothing
// to do. Close bumps a generation counter so results from a superseded job
// are dropped.
package jobs
