// Package workflow runs queued dubbing jobs in the background.
//
// The Manager polls the SQLite queue, claims pending jobs, and executes
// the dubbing pipeline with a bounded worker pool. Progress updates are
// persisted back to the queue so CLI status commands reflect live state,
// and notifications fire on job milestones.
package workflow
