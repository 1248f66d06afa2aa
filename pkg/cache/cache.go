// Package cache stores derivation introspection results between runs.
//
// Evaluating a derivation takes seconds; for a tree inside the store the
// result only depends on the tree path and the attribute name, so a second
// run over the same tree can skip the nix invocation entirely. Trees outside
// the store are never cached.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under the XDG cache directory (CLI default)
//   - [RedisCache]: shared cache for several machines building one vault
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// TTLDerivation is how long an introspection result stays valid.
const TTLDerivation = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// DerivationKey is the key for the introspection result of attribute
	// name in the tree at repoPath.
	DerivationKey(repoPath, name string) string
}

// DefaultKeyer hashes key components.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DerivationKey implements Keyer.
func (DefaultKeyer) DerivationKey(repoPath, name string) string {
	return hashKey("drv", repoPath, name)
}
