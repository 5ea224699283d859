// SPDX-License-Identifier: MPL-2.0

// Package resolver maps package names to version ranges for imports that
// the caller supplied without one.
package resolver

import (
	"context"
	"strings"
)

type (
	// Resolver looks up the version range of a package. The boolean is false
	// when the package is unknown.
	Resolver interface {
		Resolve(ctx context.Context, pkg string) (string, bool)
	}

	// Func adapts a function to the Resolver interface.
	Func func(ctx context.Context, pkg string) (string, bool)

	// Static resolves from a fixed table. Keys are package names or dotted
	// prefixes ending in ".*"; an exact key beats the longest matching prefix.
	// A Static must not be modified once in use.
	Static map[string]string

	chain []Resolver
)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, pkg string) (string, bool) { return f(ctx, pkg) }

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, pkg string) (string, bool) {
	if v, ok := s[pkg]; ok {
		return v, true
	}
	for prefix := pkg; prefix != ""; {
		if v, ok := s[prefix+".*"]; ok {
			return v, true
		}
		i := strings.LastIndexByte(prefix, '.')
		if i < 0 {
			break
		}
		prefix = prefix[:i]
	}
	return "", false
}

// Chain returns a Resolver consulting rs in order; the first hit wins.
// Nil entries are skipped.
func Chain(rs ...Resolver) Resolver {
	out := make(chain, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c chain) Resolve(ctx context.Context, pkg string) (string, bool) {
	for _, r := range c {
		if v, ok := r.Resolve(ctx, pkg); ok {
			return v, true
		}
	}
	return "", false
}
