package record

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// StorePrefix is the directory prefix of every store path.
	StorePrefix = "/nix/store/"

	// DrvSuffix is the file suffix of derivation paths.
	DrvSuffix = ".drv"

	// Unknown is the sentinel used for absent version and license values.
	Unknown = "unknown"
)

var (
	// ErrAlreadyEnriched is returned by [Record.Enrich] when the record
	// already carries build information.
	ErrAlreadyEnriched = errors.New("record already enriched")

	// ErrMissingDrvPath is returned by [Record.Enrich] when the derivation
	// has no path.
	ErrMissingDrvPath = errors.New("derivation path is empty")

	// ErrInvalidDrvPath is returned by [ValidateDrvPath] and [Record.Enrich]
	// for paths that are not a single derivation file directly in the store.
	ErrInvalidDrvPath = errors.New("not a store derivation path")
)

// Record is one package from the manifest plus its derivation metadata.
type Record struct {
	Name             string
	Version          string
	Available        bool
	Broken           bool
	Description      string
	LongDescription  string
	Homepage         string
	LicenseShortName string
	Maintainers      []string
	Platforms        []string

	// Set together by Enrich.
	DrvPath      string
	Outputs      []string
	InputSrcs    []string
	Dependencies []string
}

// Derivation is the build description returned by introspection.
type Derivation struct {
	Path      string   // derivation store path (the single top-level key)
	Outputs   []string // output names
	InputDrvs []string // input derivation paths
	InputSrcs []string // input source paths, in the order given
}

// Enrich copies the derivation fields onto the record. Either all four build
// fields are set or, on error, none are.
func (r *Record) Enrich(d *Derivation) error {
	if r.IsEnriched() {
		return ErrAlreadyEnriched
	}
	if d == nil || d.Path == "" {
		return ErrMissingDrvPath
	}
	if err := ValidateDrvPath(d.Path); err != nil {
		return err
	}

	outputs := slices.Clone(d.Outputs)
	slices.Sort(outputs)
	deps := slices.Clone(d.InputDrvs)
	slices.Sort(deps)

	r.DrvPath = d.Path
	r.Outputs = outputs
	r.InputSrcs = slices.Clone(d.InputSrcs)
	r.Dependencies = deps
	return nil
}

// IsEnriched reports whether introspection succeeded for this record.
func (r *Record) IsEnriched() bool {
	return r.DrvPath != ""
}

// ID returns the normalized identifier used as the document filename.
// Records without a derivation path fall back to the package name.
func (r *Record) ID() string {
	if r.DrvPath == "" {
		return r.Name
	}
	return NormalizeID(r.DrvPath)
}

// DependencyIDs returns the normalized identifiers of all dependencies, in
// the same order as Dependencies.
func (r *Record) DependencyIDs() []string {
	ids := make([]string, len(r.Dependencies))
	for i, d := range r.Dependencies {
		ids[i] = NormalizeID(d)
	}
	return ids
}

// ValidateDrvPath checks that p names a derivation file directly under
// StorePrefix. The normalized ID of a valid path is a single path element,
// so it can be used as a filename.
func ValidateDrvPath(p string) error {
	if !strings.HasPrefix(p, StorePrefix) || !strings.HasSuffix(p, DrvSuffix) {
		return fmt.Errorf("%w: %q", ErrInvalidDrvPath, p)
	}
	id := NormalizeID(p)
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidDrvPath, p)
	}
	return nil
}

// NormalizeID strips the store prefix and the derivation suffix from a store
// path, each at most once. Strings without either are returned unchanged.
func NormalizeID(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, StorePrefix), DrvSuffix)
}
