// Package manifest loads and generates the nixpkgs package manifest.
//
// The manifest is the JSON printed by `nix-env -qaP --json --meta`, stored
// as <outdir>/packages.json. Two layouts are accepted: the flat attribute
// map printed by nix-env, and the same map nested under a top-level
// "packages" key. Entries are kept raw; turning them into records is the
// job of [record.FromManifest], which never fails on a malformed entry.
package manifest

import (
	"bytes"
	"encoding/json"
	"io"
	"maps"
	"os"
	"slices"

	errs "github.com/matzehuels/nixvault/pkg/errors"
)

// FileName is the manifest file name inside the output directory.
const FileName = "packages.json"

// Manifest maps attribute paths to raw package entries.
type Manifest struct {
	Packages map[string]json.RawMessage `json:"packages"`
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "open %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a manifest from r.
func Decode(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "read manifest")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidManifest, "manifest is empty")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "manifest is not a JSON object")
	}
	if top == nil {
		return nil, errs.New(errs.ErrCodeInvalidManifest, "manifest is null")
	}

	// A flat manifest may itself contain a package named "packages", so only
	// a single-key document is treated as the wrapper.
	if raw, ok := top["packages"]; ok && len(top) == 1 {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil && nested != nil {
			return &Manifest{Packages: nested}, nil
		}
	}
	return &Manifest{Packages: top}, nil
}

// Names returns all attribute paths in sorted order.
func (m *Manifest) Names() []string {
	return slices.Sorted(maps.Keys(m.Packages))
}

// Len returns the number of packages.
func (m *Manifest) Len() int {
	return len(m.Packages)
}

// Entry returns the raw entry for name.
func (m *Manifest) Entry(name string) (json.RawMessage, bool) {
	raw, ok := m.Packages[name]
	return raw, ok
}
