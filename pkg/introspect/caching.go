package introspect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nixvault/pkg/cache"
	"github.com/matzehuels/nixvault/pkg/observability"
	"github.com/matzehuels/nixvault/pkg/record"
)

const cacheKeyType = "derivation"

// CachingIntrospector memoizes successful results of Inner. Failures are
// never cached so a transient nix error is retried on the next run. Cache
// backend errors degrade to a miss.
//
// Only trees inside the store are cached: their content never changes under
// the same path. A working checkout such as ~/src/nixpkgs is introspected
// afresh on every call.
type CachingIntrospector struct {
	Inner  Introspector
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewCachingIntrospector wraps inner with c. A nil keyer uses the default.
func NewCachingIntrospector(inner Introspector, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *CachingIntrospector {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl <= 0 {
		ttl = cache.TTLDerivation
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachingIntrospector{Inner: inner, Cache: c, Keyer: keyer, TTL: ttl, Logger: logger}
}

// Introspect implements Introspector.
func (c *CachingIntrospector) Introspect(ctx context.Context, name, repoPath string) (*record.Derivation, error) {
	if !Cacheable(repoPath) {
		return c.Inner.Introspect(ctx, name, repoPath)
	}
	key := c.Keyer.DerivationKey(repoPath, name)

	if d, err := c.lookup(ctx, key); err == nil && d != nil {
		observability.Cache().OnCacheHit(ctx, cacheKeyType)
		return d, nil
	} else if err != nil {
		c.Logger.Debug("cache read failed", "package", name, "err", err)
	}
	observability.Cache().OnCacheMiss(ctx, cacheKeyType)

	d, err := c.Inner.Introspect(ctx, name, repoPath)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(d)
	if err != nil {
		return d, nil
	}
	if err := c.Cache.Set(ctx, key, data, c.TTL); err != nil {
		c.Logger.Debug("cache write failed", "package", name, "err", err)
		return d, nil
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
	return d, nil
}

// Cacheable reports whether introspection results for the tree at repoPath
// may be cached, which holds for immutable store paths only.
func Cacheable(repoPath string) bool {
	return strings.HasPrefix(repoPath, record.StorePrefix) && !strings.Contains(repoPath, "..")
}

// lookup returns (nil, nil) on a miss.
func (c *CachingIntrospector) lookup(ctx context.Context, key string) (*record.Derivation, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var d record.Derivation
	if err := json.Unmarshal(data, &d); err != nil || record.ValidateDrvPath(d.Path) != nil {
		_ = c.Cache.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s", cache.ErrCorruptEntry, key)
	}
	return &d, nil
}

var _ Introspector = (*CachingIntrospector)(nil)
