// Package pkg provides the libraries behind nixvault, which turns a nixpkgs
// revision into a markdown vault with one cross-linked document per package.
//
// # Architecture
//
// The data flow of a run:
//
//	nixpkgs git revision
//	         ↓
//	    [nix] package (fetch the tree into the store)
//	         ↓
//	    [manifest] package (nix-env package listing)
//	         ↓
//	    [pipeline] package (bounded worker pool, one task per package)
//	         ↓  [introspect] derivation lookup, [record] enrichment
//	         ↓
//	    [document] package (markdown rendering and persistence)
//	         ↓
//	    <outdir>/packages/<id>.md, graph.dot, graph.svg
//
// # Main Packages
//
// [record] - The per-package record, manifest parsing with defaults and
// identifier normalization. Identifiers double as document filenames and
// link targets.
//
// [introspect] - Derivation lookup through `nix derivation show`, schema
// validation of its output and a caching decorator.
//
// [pipeline] - Orchestration. Per-package failures are counted and never
// abort a run; progress counters are readable at any time.
//
// [document] - Markdown rendering and file output.
//
// [depgraph] - Dependency graph of written documents, exported as DOT or SVG.
//
// ## Infrastructure
//
// [nix] - External command execution with timeouts and the tree fetch.
//
// [cache] - File, Redis and no-op caches for derivation lookups.
//
// [config] - TOML or YAML configuration with XDG locations.
//
// [status] - HTTP endpoint reporting the progress of a running pipeline.
//
// [observability] - Hooks for metrics and tracing around runs, caches and
// commands.
//
// [errors] - Coded errors separating fatal from per-package failures.
//
// # Testing
//
// No test starts a real nix process; commands go through a [nix.Runner]
// that tests replace with a fake.
//
//	go test ./pkg/...
//
// [record]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/record
// [introspect]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/introspect
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/pipeline
// [document]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/document
// [depgraph]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/depgraph
// [manifest]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/manifest
// [nix]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/nix
// [nix.Runner]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/nix#Runner
// [cache]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/config
// [status]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/status
// [observability]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/nixvault/pkg/errors
package pkg
