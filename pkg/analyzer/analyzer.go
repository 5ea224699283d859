// SPDX-License-Identifier: MPL-2.0

// Package analyzer computes bundle manifests from archive contents and
// instruction properties.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhanleewo/fuse/pkg/archive"
	"github.com/zhanleewo/fuse/pkg/header"
	"github.com/zhanleewo/fuse/pkg/instructions"
)

const (
	// ToolName is written to the Tool header of computed manifests.
	ToolName = "fabwrap"
	// DefaultBundleVersion is used when no Bundle-Version is configured.
	DefaultBundleVersion = "0.0.0"
)

// ErrNoSymbolicName is returned when the properties carry no
// Bundle-SymbolicName.
var ErrNoSymbolicName = errors.New("missing " + header.BundleSymbolicName)

type (
	// Scanner computes the manifest of an archive.
	Scanner interface {
		// CalcManifest computes a manifest for a from props, installs it on a
		// and returns it. classpath lists local archives visible to a.
		CalcManifest(ctx context.Context, a *archive.Archive, props *instructions.Instructions, classpath []string) (*archive.Manifest, error)
		// ExportsFromContents returns an Export-Package value naming every
		// package held by a.
		ExportsFromContents(a *archive.Archive) string
	}

	// Referencer reports the packages referenced by the code in an archive.
	Referencer interface {
		References(ctx context.Context, a *archive.Archive, classpath []string) ([]string, error)
	}

	// ReferencerFunc adapts a function to the Referencer interface.
	ReferencerFunc func(ctx context.Context, a *archive.Archive, classpath []string) ([]string, error)

	// Analyzer is the default Scanner. It matches referenced and contained
	// packages against Import-Package and Export-Package patterns.
	Analyzer struct {
		// Referencer supplies referenced packages; nil means none.
		Referencer Referencer
	}
)

// References calls f.
func (f ReferencerFunc) References(ctx context.Context, a *archive.Archive, classpath []string) ([]string, error) {
	return f(ctx, a, classpath)
}

// New returns an Analyzer using r for package references.
func New(r Referencer) *Analyzer {
	return &Analyzer{Referencer: r}
}

// ExportsFromContents implements Scanner.
func (*Analyzer) ExportsFromContents(a *archive.Archive) string {
	return strings.Join(a.Packages(), ",")
}

// CalcManifest implements Scanner.
func (an *Analyzer) CalcManifest(ctx context.Context, a *archive.Archive, props *instructions.Instructions, classpath []string) (*archive.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bsn := strings.TrimSpace(props.Get(header.BundleSymbolicName))
	if bsn == "" {
		return nil, ErrNoSymbolicName
	}

	own := a.Packages()
	external := make(map[string]struct{}, len(own))
	for _, p := range own {
		external[p] = struct{}{}
	}
	for _, path := range classpath {
		pkgs, err := archive.PackagesInFile(path)
		if err != nil {
			slog.Debug("classpath entry is not an archive", "path", path, "error", err)
			continue
		}
		for _, p := range pkgs {
			external[p] = struct{}{}
		}
	}

	var refs []string
	if an.Referencer != nil {
		found, err := an.Referencer.References(ctx, a, classpath)
		if err != nil {
			return nil, fmt.Errorf("failed to collect package references: %w", err)
		}
		for _, p := range found {
			if _, ok := external[p]; !ok {
				refs = append(refs, p)
			}
		}
		slices.Sort(refs)
		refs = slices.Compact(refs)
	}

	importText := props.Get(header.ImportPackage)
	if strings.TrimSpace(importText) == "" {
		importText = "*"
	}
	imports, err := selectPackages(importText, refs, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", header.ImportPackage, err)
	}
	exports, err := selectPackages(props.Get(header.ExportPackage), own, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", header.ExportPackage, err)
	}

	m := archive.NewManifest()
	m.Set(header.BundleManifestVersion, "2")
	m.Set(header.BundleSymbolicName, bsn)
	m.Set(header.BundleName, bsn)
	m.Set(header.BundleVersion, DefaultBundleVersion)
	for k, v := range props.All() {
		if startsUpper(k) {
			m.Set(k, v)
		}
	}
	setOrDelete(m, header.ExportPackage, exports)
	setOrDelete(m, header.ImportPackage, imports)
	m.Set("Tool", ToolName)

	a.SetManifest(m)
	return m, nil
}

// selectPackages assigns each package to the first pattern matching it and
// prints the selected clauses in pattern order. With keepLiterals, literal
// non-negated patterns are emitted even when no package matched them.
func selectPackages(patterns string, pkgs []string, keepLiterals bool) (header.Clauses, error) {
	if strings.TrimSpace(patterns) == "" {
		return nil, nil
	}
	ins, err := header.ParseInstructions(patterns)
	if err != nil {
		return nil, err
	}

	matched := make([][]string, len(ins))
	for _, p := range pkgs {
		for i, in := range ins {
			if in.Matches(p) {
				if !in.Negated() {
					matched[i] = append(matched[i], p)
				}
				break
			}
		}
	}

	var out header.Clauses
	seen := make(map[string]struct{})
	emit := func(name string, attrs []header.Attr) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, header.Clause{Name: name, Attrs: slices.Clone(attrs)})
	}
	for i, in := range ins {
		if in.Negated() {
			continue
		}
		if in.Literal() && (keepLiterals || len(matched[i]) > 0) {
			emit(in.Clause.Name, in.Clause.Attrs)
			continue
		}
		for _, p := range matched[i] {
			emit(p, in.Clause.Attrs)
		}
	}
	return out, nil
}

func setOrDelete(m *archive.Manifest, name string, cs header.Clauses) {
	if len(cs) == 0 {
		m.Delete(name)
		return
	}
	m.Set(name, header.Print(cs, nil))
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
