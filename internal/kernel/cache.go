package kernel

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache maps kernel signatures to compiled artifacts. It is the only
// component in the pipeline holding mutable state shared across
// evaluation calls.
//
// Concurrent first-use policy: blocking wait. When several goroutines
// request an uncached signature at once, one runs the compile function
// and the rest block until it finishes, then share the winner's
// artifact. No duplicate compilation ever executes. Compilation of
// distinct signatures is never serialized against each other.
type Cache struct {
	mu        sync.RWMutex
	artifacts map[Signature]*Artifact
	group     singleflight.Group
	compiles  atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{artifacts: make(map[Signature]*Artifact)}
}

// defaultCache backs kernels compiled without an explicit cache.
// Artifacts stored here live until process teardown; there is no
// eviction.
var defaultCache = NewCache()

// Default returns the process-wide cache.
func Default() *Cache { return defaultCache }

// GetOrCompile returns the artifact for sig, invoking compile at most
// once per signature even under concurrent first-time requests. If
// compile fails, nothing is cached and the error is returned to every
// waiter; a subsequent call retries.
func (c *Cache) GetOrCompile(sig Signature, compile func() (*Artifact, error)) (*Artifact, error) {
	c.mu.RLock()
	art, ok := c.artifacts[sig]
	c.mu.RUnlock()
	if ok {
		return art, nil
	}

	v, err, _ := c.group.Do(sig.String(), func() (any, error) {
		// A previous winner may have stored the artifact between the
		// read above and entering the flight.
		c.mu.RLock()
		art, ok := c.artifacts[sig]
		c.mu.RUnlock()
		if ok {
			return art, nil
		}

		c.compiles.Add(1)
		art, err := compile()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.artifacts[sig] = art
		c.mu.Unlock()
		return art, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

// Len returns the number of cached artifacts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.artifacts)
}

// Compiles returns how many compile functions the cache has run,
// counting failures. Used by tests and the bench harness to verify
// compile-once behavior.
func (c *Cache) Compiles() int64 {
	return c.compiles.Load()
}
