// Package pipeline turns a package manifest into a vault of documents.
//
// For every selected manifest entry the pipeline builds a record, asks an
// [introspect.Introspector] for its derivation, and writes the rendered
// document. Entries are processed by a bounded pool of workers; a failure
// in one entry is counted and logged but never stops its siblings.
//
// # Usage
//
//	runner := pipeline.NewRunner(introspector, nil, logger)
//	summary, err := runner.Run(ctx, m, pipeline.Options{
//	    RepoPath: "/nix/store/...-source",
//	    OutDir:   "nixpkgs-vault",
//	    Workers:  8,
//	})
//	if err != nil {
//	    // invalid options or cancelled context
//	}
//	fmt.Println(summary.Written, summary.Failed)
//
// Progress can be observed while the run is in flight through
// [Options.Progress] or the [Options.OnProgress] callback.
package pipeline

import (
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/matzehuels/nixvault/pkg/errors"
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	// RepoPath is the nixpkgs tree passed to the introspector.
	RepoPath string
	// OutDir is the vault root. Documents go to OutDir/packages.
	OutDir string
	// Workers bounds concurrent packages. Zero means runtime.NumCPU().
	Workers int
	// Limit processes only the first Limit names in sorted order when > 0.
	Limit int
	// Only restricts the run to these attribute names.
	Only []string

	// RunID identifies the run in logs and status output. Generated when empty.
	RunID string
	// Progress receives counter updates. Created when nil.
	Progress *Progress
	// OnProgress is called after every finished package.
	OnProgress func(Snapshot)

	// Logger receives run logs unless Runner.Logger is set. Defaults to a
	// discarding logger.
	Logger *log.Logger
	// Now stamps generated documents. Defaults to time.Now.
	Now func() time.Time

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.RepoPath == "" {
		return errs.New(errs.ErrCodeInvalidInput, "repository path is required")
	}
	if o.OutDir == "" {
		return errs.New(errs.ErrCodeInvalidInput, "output directory is required")
	}
	if o.Workers < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "workers must be positive, got %d", o.Workers)
	}
	if o.Limit < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "limit must not be negative, got %d", o.Limit)
	}
	for _, name := range o.Only {
		if err := errs.ValidateAttrPath(name); err != nil {
			return err
		}
	}

	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Progress == nil {
		o.Progress = NewProgress()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.validated = true
	return nil
}

// Select filters sorted manifest names by Only and Limit. Names in Only
// that are missing from the manifest are returned separately.
func (o *Options) Select(names []string) (selected, missing []string) {
	selected = names
	if len(o.Only) > 0 {
		selected = nil
		for _, name := range o.Only {
			if _, found := slices.BinarySearch(names, name); found {
				selected = append(selected, name)
			} else {
				missing = append(missing, name)
			}
		}
		slices.Sort(selected)
		selected = slices.Compact(selected)
	}
	if o.Limit > 0 && len(selected) > o.Limit {
		selected = selected[:o.Limit]
	}
	return selected, missing
}

// =============================================================================
// Summary
// =============================================================================

// Summary reports the outcome of a run.
type Summary struct {
	RunID     string
	Total     int
	Processed int
	Written   int
	Failed    int

	IntrospectFailures int
	SaveFailures       int
	// Collisions counts documents that replaced a document of a different
	// package with the same identifier.
	Collisions int

	Duration time.Duration
}
