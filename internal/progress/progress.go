package progress

import (
	"fmt"
	"sync"
	"time"
)

// Reporter receives progress while a source is walked during import
type Reporter interface {
	// Start begins tracking a walk of the named source
	Start(source string)
	// Found reports a resource added to the walked collection
	Found(path string)
	// Skipped reports an entry that could not be read
	Skipped(path string, err error)
	// Done marks the walk as finished
	Done()
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type      UpdateType
	Source    string
	Path      string
	Found     int
	Skipped   int
	Elapsed   time.Duration
	PerSecond float64
	Error     error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateFound
	UpdateSkipped
	UpdateDone
)

// CallbackReporter implements Reporter with a callback function.
// It is safe for concurrent use.
type CallbackReporter struct {
	callback  Callback
	mu        sync.Mutex
	source    string
	found     int
	skipped   int
	startTime time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// Start resets the counters for a new walk
func (r *CallbackReporter) Start(source string) {
	r.mu.Lock()
	r.source = source
	r.found = 0
	r.skipped = 0
	r.startTime = time.Now()
	update := r.snapshot(UpdateStart, "", nil)
	r.mu.Unlock()

	r.emit(update)
}

// Found counts a walked resource
func (r *CallbackReporter) Found(path string) {
	r.mu.Lock()
	r.found++
	update := r.snapshot(UpdateFound, path, nil)
	r.mu.Unlock()

	r.emit(update)
}

// Skipped counts an unreadable entry
func (r *CallbackReporter) Skipped(path string, err error) {
	r.mu.Lock()
	r.skipped++
	update := r.snapshot(UpdateSkipped, path, err)
	r.mu.Unlock()

	r.emit(update)
}

// Done reports the final counts
func (r *CallbackReporter) Done() {
	r.mu.Lock()
	update := r.snapshot(UpdateDone, "", nil)
	r.mu.Unlock()

	r.emit(update)
}

// snapshot builds an update from the current counters; r.mu must be held
func (r *CallbackReporter) snapshot(t UpdateType, path string, err error) Update {
	elapsed := time.Since(r.startTime)

	var perSecond float64
	if s := elapsed.Seconds(); s > 0 {
		perSecond = float64(r.found) / s
	}

	return Update{
		Type:      t,
		Source:    r.source,
		Path:      path,
		Found:     r.found,
		Skipped:   r.skipped,
		Elapsed:   elapsed,
		PerSecond: perSecond,
		Error:     err,
	}
}

// emit runs the callback outside the lock so it may call back into r
func (r *CallbackReporter) emit(update Update) {
	if r.callback != nil {
		r.callback(update)
	}
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) Start(source string)            {}
func (NullReporter) Found(path string)              {}
func (NullReporter) Skipped(path string, err error) {}
func (NullReporter) Done()                          {}

// Throttle wraps a callback so that found updates are delivered at most
// once per interval. Start, skipped and done updates always pass.
func Throttle(interval time.Duration, callback Callback) Callback {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(update Update) {
		if update.Type == UpdateFound {
			mu.Lock()
			now := time.Now()
			if now.Sub(last) < interval {
				mu.Unlock()
				return
			}
			last = now
			mu.Unlock()
		}
		callback(update)
	}
}

// FormatRate formats a resources-per-second rate
func FormatRate(perSecond float64) string {
	switch {
	case perSecond >= 1000:
		return fmt.Sprintf("%.1fk/s", perSecond/1000)
	default:
		return fmt.Sprintf("%.0f/s", perSecond)
	}
}

// FormatUpdate renders an update as a single status line
func FormatUpdate(u Update) string {
	switch u.Type {
	case UpdateStart:
		return fmt.Sprintf("walking %s...", u.Source)
	case UpdateSkipped:
		return fmt.Sprintf("%s: skipped %s: %v", u.Source, u.Path, u.Error)
	case UpdateDone:
		line := fmt.Sprintf("%s: %d resources in %s", u.Source, u.Found, u.Elapsed.Round(time.Millisecond))
		if u.Skipped > 0 {
			line += fmt.Sprintf(" (%d skipped)", u.Skipped)
		}
		return line
	default:
		return fmt.Sprintf("%s: %d resources (%s)", u.Source, u.Found, FormatRate(u.PerSecond))
	}
}
