// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the entry limit used by NewCached for sizes <= 0.
const DefaultCacheSize = 1024

type (
	// Cached memoizes the answers of another Resolver, misses included.
	// It is safe for concurrent use.
	Cached struct {
		next  Resolver
		cache *lru.Cache[string, answer]
	}

	answer struct {
		version string
		found   bool
	}
)

// NewCached wraps r with an LRU cache holding up to size answers.
func NewCached(r Resolver, size int) (*Cached, error) {
	if r == nil {
		return nil, fmt.Errorf("cached resolver: nil resolver")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, answer](size)
	if err != nil {
		return nil, fmt.Errorf("cached resolver: %w", err)
	}
	return &Cached{next: r, cache: c}, nil
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, pkg string) (string, bool) {
	if a, ok := c.cache.Get(pkg); ok {
		return a.version, a.found
	}
	v, found := c.next.Resolve(ctx, pkg)
	c.cache.Add(pkg, answer{version: v, found: found})
	return v, found
}

// Len returns the number of cached answers.
func (c *Cached) Len() int { return c.cache.Len() }

// Purge drops every cached answer.
func (c *Cached) Purge() { c.cache.Purge() }
