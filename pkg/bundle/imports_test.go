// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zhanleewo/fuse/pkg/archive"
	"github.com/zhanleewo/fuse/pkg/header"
	"github.com/zhanleewo/fuse/pkg/resolver"
)

func TestMergeImports(t *testing.T) {
	t.Parallel()

	versions := resolver.Static{
		"org.slf4j":    "[1.7,2)",
		"com.acme.*":   "[2,3)",
		"javax.inject": "1",
	}
	tests := []struct {
		name       string
		raw        string
		extra      string
		resolver   resolver.Resolver
		want       string
		wantActual []string
	}{
		{
			name:       "extra merged into existing clause",
			raw:        "com.acme.gadgets,com.acme.widgets",
			extra:      "com.acme.widgets;version=1.0",
			want:       "com.acme.gadgets,com.acme.widgets;version=1.0",
			wantActual: []string{"com.acme.gadgets", "com.acme.widgets"},
		},
		{
			name:       "extra wins on conflicts and is appended in order",
			raw:        "org.slf4j;version=1.6;resolution:=optional",
			extra:      "org.slf4j;resolution:=mandatory,z.last,a.first",
			want:       "org.slf4j;version=1.6;resolution:=mandatory,z.last,a.first",
			wantActual: []string{"a.first", "org.slf4j", "z.last"},
		},
		{
			name:       "resolver fills only missing versions",
			raw:        "org.slf4j,com.acme.widgets;version=9,com.acme.tools,unknown.pkg",
			resolver:   versions,
			want:       `org.slf4j;version="[1.7,2)",com.acme.widgets;version=9,com.acme.tools;version="[2,3)",unknown.pkg`,
			wantActual: []string{"com.acme.tools", "com.acme.widgets", "org.slf4j", "unknown.pkg"},
		},
		{
			name:       "disallowed attributes dropped",
			raw:        "javax.inject;bundle-symbolic-name=x;version=1;uses:=\"a,b\";foo=bar",
			want:       `javax.inject;version=1;uses:="a,b"`,
			wantActual: []string{"javax.inject"},
		},
		{
			name:       "optional imports excluded from actual",
			raw:        "a;resolution:=optional,b;resolution:=Optional,c,a.again;resolution:=\"optional\"",
			want:       "a;resolution:=optional,b;resolution:=Optional,c,a.again;resolution:=optional",
			wantActual: []string{"b", "c"},
		},
		{
			name:       "empty",
			raw:        "",
			extra:      "  ",
			resolver:   versions,
			want:       "",
			wantActual: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, actual, err := MergeImports(context.Background(), tt.raw, tt.extra, tt.resolver)
			if err != nil {
				t.Fatalf("MergeImports() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MergeImports() header =\n  %s\nwant\n  %s", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantActual, actual.Sorted()); diff != "" {
				t.Errorf("MergeImports() actual mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeImports_BackFillIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	r := resolver.Func(func(_ context.Context, pkg string) (string, bool) {
		calls++
		return "[" + pkg + "]", true
	})
	first, _, err := MergeImports(context.Background(), "a,b;version=2,c", "", r)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("resolver calls = %d, want 2 (versioned clause must not be resolved)", calls)
	}

	second, _, err := MergeImports(context.Background(), first, "", r)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Errorf("second merge changed the header:\n  %s\n  %s", first, second)
	}
	if calls != 2 {
		t.Errorf("second merge consulted the resolver %d more times", calls-2)
	}
}

func TestMergeImports_ActualImportsExactlyOnce(t *testing.T) {
	t.Parallel()

	_, actual, err := MergeImports(context.Background(), "a,a;version=1,b;resolution:=optional", "a;version=2,c", nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, actual.Sorted()); diff != "" {
		t.Errorf("actual mismatch (-want +got):\n%s", diff)
	}
	if actual.Has("b") {
		t.Error("optional import reported as actual")
	}
}

func TestMergeImports_SyntaxErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ raw, extra string }{
		{raw: "a;version=1;b"},
		{raw: "a", extra: ";version=1"},
	} {
		if _, _, err := MergeImports(context.Background(), tc.raw, tc.extra, nil); !errors.Is(err, header.ErrSyntax) {
			t.Errorf("MergeImports(%q, %q) error = %v, want ErrSyntax", tc.raw, tc.extra, err)
		}
	}
}

func TestApplyImports(t *testing.T) {
	t.Parallel()

	m := archive.NewManifest()
	if _, err := ApplyImports(context.Background(), m, "", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Lookup(header.ImportPackage); ok {
		t.Error("empty merge result created an Import-Package header")
	}

	m.Set(header.ImportPackage, "org.slf4j;foo=bar")
	actual, err := ApplyImports(context.Background(), m, "com.acme", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Get(header.ImportPackage); got != "org.slf4j,com.acme" {
		t.Errorf("Import-Package = %q", got)
	}
	if diff := cmp.Diff([]string{"com.acme", "org.slf4j"}, actual.Sorted()); diff != "" {
		t.Errorf("actual mismatch (-want +got):\n%s", diff)
	}
}
