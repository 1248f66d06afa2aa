// Package document renders package records as cross-linked markdown notes.
//
// # Layout
//
// Each successfully introspected package becomes one file:
//
//	<outdir>/packages/<id>.md
//
// where id is [record.NormalizeID] of the derivation path. Dependencies are
// rendered as wiki links ([[id]]) using the same normalization, so a link in
// one document always names the file of the dependency's own document.
//
// # Format
//
// Sections appear in a fixed order and empty sections are omitted:
//
//	# hello
//
//	#package
//
//	- **Name**: hello
//	- **Version**: 2.12.1
//	...
//
//	## Description
//	## Maintainers
//	## Build Information
//	## Dependencies
//	## Input Sources
//
//	---
//
//	*Generated: 2026-01-02T15:04:05Z*
//
// Apart from the final timestamp line, rendering is a pure function of the
// record: rendering the same record twice yields identical bytes.
package document
