package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/nixvault/pkg/depgraph"
	"github.com/matzehuels/nixvault/pkg/document"
	errs "github.com/matzehuels/nixvault/pkg/errors"
	"github.com/matzehuels/nixvault/pkg/introspect"
	"github.com/matzehuels/nixvault/pkg/manifest"
	"github.com/matzehuels/nixvault/pkg/observability"
	"github.com/matzehuels/nixvault/pkg/record"
)

// Saver persists one record and returns where it was written.
type Saver interface {
	Save(r *record.Record, generatedAt time.Time) (string, error)
}

// Runner executes pipeline runs.
//
// The Runner holds no per-run state; the same Runner may serve several runs
// with different options.
type Runner struct {
	Introspector introspect.Introspector
	// Saver writes documents. When nil, a [document.Writer] rooted at
	// Options.OutDir is used.
	Saver Saver
	// Graph, when set, collects the dependency edges of written packages.
	Graph *depgraph.Graph
	// Logger overrides Options.Logger when set.
	Logger *log.Logger
}

// NewRunner creates a runner. A nil saver writes to Options.OutDir; a nil
// logger leaves Options.Logger in charge.
func NewRunner(in introspect.Introspector, saver Saver, logger *log.Logger) *Runner {
	return &Runner{
		Introspector: in,
		Saver:        saver,
		Logger:       logger,
	}
}

// run carries the shared state of one Run call.
type run struct {
	opts     Options
	manifest *manifest.Manifest
	saver    Saver
	logger   *log.Logger

	introspectFailures atomic.Int64
	saveFailures       atomic.Int64
	collisions         atomic.Int64

	// claimed maps written document ids to package names.
	claimed sync.Map
}

// Run processes every selected manifest entry. Per-package failures are
// counted in the summary and never returned as an error; Run only fails on
// invalid options or when ctx is cancelled, in which case dispatching stops
// and documents already written stay on disk.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest, opts Options) (*Summary, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if r.Introspector == nil {
		return nil, errs.New(errs.ErrCodeInternal, "runner has no introspector")
	}

	logger := r.Logger
	if logger == nil {
		logger = opts.Logger
	}
	saver := r.Saver
	if saver == nil {
		saver = document.NewWriter(opts.OutDir)
	}

	names, missing := opts.Select(m.Names())
	for _, name := range missing {
		logger.Warn("package not in manifest", "package", name)
	}

	st := &run{opts: opts, manifest: m, saver: saver, logger: logger}
	progress := opts.Progress
	progress.start(len(names))

	start := time.Now()
	observability.Pipeline().OnRunStart(ctx, opts.RunID, len(names))
	logger.Info("processing packages", "run", opts.RunID, "total", len(names), "workers", opts.Workers)

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if r.process(ctx, st, name) {
				progress.succeed()
			} else {
				progress.fail()
			}
			if opts.OnProgress != nil {
				opts.OnProgress(progress.Snapshot())
			}
			return nil
		})
	}
	_ = g.Wait()
	progress.finish()

	snap := progress.Snapshot()
	summary := &Summary{
		RunID:              opts.RunID,
		Total:              snap.Total,
		Processed:          snap.Processed,
		Written:            snap.Written,
		Failed:             snap.Failed,
		IntrospectFailures: int(st.introspectFailures.Load()),
		SaveFailures:       int(st.saveFailures.Load()),
		Collisions:         int(st.collisions.Load()),
		Duration:           time.Since(start),
	}
	observability.Pipeline().OnRunComplete(ctx, opts.RunID, summary.Processed, summary.Failed, summary.Duration)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// process handles one package and reports whether its document was written.
// Every failure is logged here; the caller only counts.
func (r *Runner) process(ctx context.Context, st *run, name string) (ok bool) {
	start := time.Now()
	observability.Pipeline().OnPackageStart(ctx, name)
	var failure error
	defer func() {
		observability.Pipeline().OnPackageComplete(ctx, name, time.Since(start), failure)
	}()

	raw, _ := st.manifest.Entry(name)
	rec, defaults := record.FromManifest(name, raw)
	if len(defaults) > 0 {
		st.logger.Debug("defaulted manifest fields", "package", name, "fields", defaults)
	}

	d, err := r.Introspector.Introspect(ctx, name, st.opts.RepoPath)
	if err == nil {
		if enrichErr := rec.Enrich(d); enrichErr != nil {
			err = errs.Wrap(errs.ErrCodeMalformedDerivation, enrichErr, "%s", name)
		}
	}
	if err != nil {
		failure = err
		st.introspectFailures.Add(1)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			st.logger.Debug("introspect cancelled", "package", name)
		} else {
			st.logger.Error("introspect failed", "package", name, "err", err)
		}
		return false
	}

	id := rec.ID()
	if prev, loaded := st.claimed.LoadOrStore(id, name); loaded && prev.(string) != name {
		st.collisions.Add(1)
		st.logger.Warn("document collision, last write wins", "id", id, "package", name, "previous", prev)
	}

	path, err := st.saver.Save(rec, st.opts.Now())
	if err != nil {
		failure = err
		st.saveFailures.Add(1)
		st.logger.Error("save failed", "package", name, "err", err)
		return false
	}
	if r.Graph != nil {
		r.Graph.Add(rec)
	}
	st.logger.Debug("wrote document", "package", name, "path", path)
	return true
}
