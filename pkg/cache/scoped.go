package cache

// ScopedKeyer wraps a Keyer with a prefix so that several vaults can share
// one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "nixvault:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DerivationKey generates a prefixed derivation key.
func (k *ScopedKeyer) DerivationKey(repoPath, name string) string {
	return k.prefix + k.inner.DerivationKey(repoPath, name)
}
