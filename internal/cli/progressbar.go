package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/matzehuels/nixvault/pkg/pipeline"
)

// barReporter draws run progress. The bar is created on the first update,
// once the number of selected packages is known.
type barReporter struct {
	w io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{w: w}
}

// update is installed as pipeline.Options.OnProgress; it runs on worker
// goroutines, once per finished package.
func (r *barReporter) update(s pipeline.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		r.bar = progressbar.NewOptions(s.Total,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionFullWidth(),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionSetDescription("introspecting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}
	if s.Failed > 0 {
		r.bar.Describe(fmt.Sprintf("introspecting (%d failed)", s.Failed))
	}
	_ = r.bar.Add(1)
}

// finish completes the bar, if one was drawn.
func (r *barReporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Fprintln(r.w)
	}
}
