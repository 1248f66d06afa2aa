// Package introspect obtains the build description of one nixpkgs attribute.
//
// The [Introspector] interface is the boundary between the pipeline and the
// nix evaluator: [NixClient] shells out to `nix derivation show`, tests use
// an [IntrospectorFunc] stub, and [CachingIntrospector] memoizes successful
// results in a [cache.Cache].
//
// Every failure returned by an Introspector is a structured error with one
// of the introspection codes (see [errors.IsIntrospection]). Callers treat
// them as local to the package and never retry.
package introspect

import (
	"context"

	"github.com/matzehuels/nixvault/pkg/record"
)

// Introspector resolves the derivation of attribute name in the nixpkgs tree
// at repoPath. Implementations must be safe for concurrent use.
type Introspector interface {
	Introspect(ctx context.Context, name, repoPath string) (*record.Derivation, error)
}

// IntrospectorFunc adapts a function to the Introspector interface.
type IntrospectorFunc func(ctx context.Context, name, repoPath string) (*record.Derivation, error)

// Introspect calls f(ctx, name, repoPath).
func (f IntrospectorFunc) Introspect(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
	return f(ctx, name, repoPath)
}
