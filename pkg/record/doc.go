// Package record defines the normalized representation of one nixpkgs
// package and its derivation metadata.
//
// A [Record] starts life from one manifest entry ([FromManifest]) and is
// enriched exactly once with the result of derivation introspection
// ([Record.Enrich]). Until enrichment succeeds the build fields (DrvPath,
// Outputs, InputSrcs, Dependencies) are all empty.
//
// # Identifiers
//
// Derivation paths such as
//
//	/nix/store/0a3l5m0iz8l1zq0bxqb7a7l6c8ch5s2d-hello-2.12.1.drv
//
// are turned into stable identifiers with [NormalizeID]:
//
//	0a3l5m0iz8l1zq0bxqb7a7l6c8ch5s2d-hello-2.12.1
//
// The same function names a record's own document and every dependency link
// target, so a link written into one document always resolves to the file
// written for the dependency.
//
// # Manifest defaults
//
// Manifest entries are heterogeneous. [FromManifest] never fails: absent or
// wrongly typed fields fall back to empty values (or the "unknown" sentinel
// for version and license), and every field that fell back is reported in
// the returned [Defaults] list.
package record
