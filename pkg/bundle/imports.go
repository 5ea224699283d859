// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/zhanleewo/fuse/pkg/archive"
	"github.com/zhanleewo/fuse/pkg/header"
	"github.com/zhanleewo/fuse/pkg/resolver"
)

// ImportSet holds the packages a bundle requires at runtime.
type ImportSet map[string]struct{}

// Add inserts pkg.
func (s ImportSet) Add(pkg string) { s[pkg] = struct{}{} }

// Has reports whether pkg is in the set.
func (s ImportSet) Has(pkg string) bool {
	_, ok := s[pkg]
	return ok
}

// Sorted returns the packages in lexical order.
func (s ImportSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for pkg := range s {
		out = append(out, pkg)
	}
	slices.Sort(out)
	return out
}

// MergeImports merges extra into the Import-Package value raw and fills in
// versions from r for clauses without one.
//
// A clause of extra updates the first raw clause with the same name, its
// attributes winning on conflicts; other extra clauses are appended in order.
// Versions already present are never replaced, and a nil r leaves clauses
// versionless. The returned header keeps only header.DefaultAllowList keys.
// The returned set holds every package whose resolution is not optional.
func MergeImports(ctx context.Context, raw, extra string, r resolver.Resolver) (string, ImportSet, error) {
	clauses, err := header.Parse(raw)
	if err != nil {
		return "", nil, err
	}

	if strings.TrimSpace(extra) != "" {
		extras, err := header.Parse(extra)
		if err != nil {
			return "", nil, err
		}
		for _, e := range extras {
			if c := clauses.Find(e.Name); c != nil {
				c.Merge(e)
				continue
			}
			clauses = append(clauses, e.Clone())
		}
	}

	if r != nil {
		for i := range clauses {
			c := &clauses[i]
			if c.Has(header.VersionAttribute) {
				continue
			}
			if v, ok := r.Resolve(ctx, c.Name); ok && v != "" {
				c.Set(header.VersionAttribute, v)
			}
		}
	}

	actual := make(ImportSet, len(clauses))
	for i := range clauses {
		if !clauses[i].IsOptional() {
			actual.Add(clauses[i].Name)
		}
	}
	return header.Print(clauses, header.DefaultAllowList), actual, nil
}

// ApplyImports runs MergeImports on the Import-Package header of m and stores
// the result. An empty result leaves m untouched.
func ApplyImports(ctx context.Context, m *archive.Manifest, extra string, r resolver.Resolver) (ImportSet, error) {
	merged, actual, err := MergeImports(ctx, m.Get(header.ImportPackage), extra, r)
	if err != nil {
		return nil, err
	}
	if merged != "" {
		m.Set(header.ImportPackage, merged)
	}
	return actual, nil
}
