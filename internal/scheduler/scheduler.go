package scheduler

import (
	"context"
	"time"
)

// Scheduler runs imports on a schedule
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop() error

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Config contains scheduler configuration
type Config struct {
	// Interval is the time between import runs
	Interval time.Duration

	// Sources lists the sources to import (empty = every configured source)
	Sources []string

	// Immediate runs the first import as soon as the scheduler starts
	Immediate bool
}

// Runner executes a single import
type Runner interface {
	// RunImport imports the named source; an empty name means all sources
	RunImport(ctx context.Context, source string) error
}
