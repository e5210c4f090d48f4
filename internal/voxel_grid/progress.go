package voxel_grid

import "sync/atomic"

// counts completed slabs and forwards them to the optional reporter
type progressTracker struct {
	reporter ProgressReporter
	total    int
	done     int64
}

func newProgressTracker(reporter ProgressReporter, total int) *progressTracker {
	return &progressTracker{
		reporter: reporter,
		total:    total,
	}
}

func (t *progressTracker) slabDone() {
	done := atomic.AddInt64(&t.done, 1)
	if t.reporter != nil {
		t.reporter.Report(int(done), t.total)
	}
}
