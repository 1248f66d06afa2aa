package pipeline

import "sync/atomic"

// Progress holds the live counters of a run. All methods are safe for
// concurrent use; Snapshot may be called at any time from any goroutine.
type Progress struct {
	total     atomic.Int64
	processed atomic.Int64
	written   atomic.Int64
	failed    atomic.Int64
	finished  atomic.Bool
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Processed int  `json:"processed"`
	Total     int  `json:"total"`
	Failed    int  `json:"failed"`
	Written   int  `json:"written"`
	Finished  bool `json:"finished"`
}

// Done reports whether the run has finished, including runs that selected
// no packages or were cancelled.
func (s Snapshot) Done() bool {
	return s.Finished
}

// NewProgress creates zeroed counters.
func NewProgress() *Progress {
	return &Progress{}
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() Snapshot {
	// processed is bumped after written or failed, so loading it first keeps
	// Processed <= Written+Failed in every snapshot. finished is set after the
	// last counter update, so a finished snapshot carries final counts.
	finished := p.finished.Load()
	processed := p.processed.Load()
	return Snapshot{
		Processed: int(processed),
		Total:     int(p.total.Load()),
		Failed:    int(p.failed.Load()),
		Written:   int(p.written.Load()),
		Finished:  finished,
	}
}

func (p *Progress) start(total int) {
	p.total.Store(int64(total))
	p.processed.Store(0)
	p.written.Store(0)
	p.failed.Store(0)
	p.finished.Store(false)
}

func (p *Progress) finish() {
	p.finished.Store(true)
}

func (p *Progress) succeed() {
	p.written.Add(1)
	p.processed.Add(1)
}

func (p *Progress) fail() {
	p.failed.Add(1)
	p.processed.Add(1)
}
