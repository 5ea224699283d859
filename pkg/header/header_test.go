// SPDX-License-Identifier: MPL-2.0

package header

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Clauses
	}{
		{"blank", "  ", nil},
		{"bare name", "org.slf4j", Clauses{{Name: "org.slf4j"}}},
		{
			"attribute and directive",
			"com.acme;version=1.0;resolution:=optional",
			Clauses{{Name: "com.acme", Attrs: []Attr{{"version", "1.0"}, {"resolution:", "optional"}}}},
		},
		{
			"quoted range keeps comma",
			`com.acme;version="[1.0,2)",org.slf4j`,
			Clauses{
				{Name: "com.acme", Attrs: []Attr{{"version", "[1.0,2)"}}},
				{Name: "org.slf4j"},
			},
		},
		{
			"whitespace around tokens",
			" a ; version = 1 , b ",
			Clauses{{Name: "a", Attrs: []Attr{{"version", "1"}}}, {Name: "b"}},
		},
		{
			"shared attributes",
			"a;b;version=1",
			Clauses{{Name: "a", Attrs: []Attr{{"version", "1"}}}, {Name: "b", Attrs: []Attr{{"version", "1"}}}},
		},
		{
			"escaped quote",
			`a;x-note="say \"hi\""`,
			Clauses{{Name: "a", Attrs: []Attr{{"x-note", `say "hi"`}}}},
		},
		{"trailing comma", "a,b,", Clauses{{Name: "a"}, {Name: "b"}}},
		{
			"duplicates are kept in order",
			"a;version=1,a;version=2",
			Clauses{{Name: "a", Attrs: []Attr{{"version", "1"}}}, {Name: "a", Attrs: []Attr{{"version", "2"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.text, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		`a;version="1.0`,
		"a;=1",
		"a;version=1;b",
		";version=1",
		"a;:=x",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("Parse(%q) error = %v, want ErrSyntax", in, err)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("errors.As(*SyntaxError) failed for %T", err)
			}
		})
	}
}

func TestPrint_FixedPoint(t *testing.T) {
	headers := []string{
		"org.slf4j",
		"com.acme;version=1.0",
		"com.acme;version=1.0;resolution:=optional,org.slf4j",
		`com.acme;version="[1.0,2)";uses:="a,b"`,
		"*;resolution:=optional",
		`a;version=""`,
	}
	for _, h := range headers {
		t.Run(h, func(t *testing.T) {
			got := Print(MustParse(h), DefaultAllowList)
			if got != h {
				t.Errorf("Print(Parse(%q)) = %q", h, got)
			}
		})
	}
}

func TestPrint_AllowList(t *testing.T) {
	cs := MustParse("com.acme;version=1.0;x-internal=true;bundle-symbolic-name=foo;resolution:=optional;secret:=yes")

	got := Print(cs, DefaultAllowList)
	want := "com.acme;version=1.0;resolution:=optional"
	if got != want {
		t.Errorf("Print(DefaultAllowList) = %q, want %q", got, want)
	}

	if got := Print(cs, NewAllowList()); got != "com.acme" {
		t.Errorf("Print(empty allow-list) = %q, want bare name", got)
	}
	if got := Print(cs, nil); got != "com.acme;version=1.0;x-internal=true;bundle-symbolic-name=foo;resolution:=optional;secret:=yes" {
		t.Errorf("Print(nil) = %q, want every attribute", got)
	}
}

func TestClause_Merge(t *testing.T) {
	c := Clause{Name: "a", Attrs: []Attr{{"version", "1"}, {"resolution:", "optional"}}}
	c.Merge(Clause{Name: "a", Attrs: []Attr{{"resolution:", "mandatory"}, {"uses:", "b"}}})

	want := []Attr{{"version", "1"}, {"resolution:", "mandatory"}, {"uses:", "b"}}
	if diff := cmp.Diff(want, c.Attrs); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	if c.IsOptional() {
		t.Error("IsOptional() = true after resolution became mandatory")
	}
}

func TestClauses_Clone(t *testing.T) {
	orig := MustParse("a;version=1")
	clone := orig.Clone()
	clone[0].Set("version", "2")
	if v, _ := orig[0].Get("version"); v != "1" {
		t.Errorf("Clone() shares attributes: original version = %q", v)
	}
}

func TestInstructions_Select(t *testing.T) {
	ins, err := ParseInstructions("!com.acme.internal.*,com.acme.*;version=1,org.slf4j,*;resolution:=optional")
	if err != nil {
		t.Fatalf("ParseInstructions() error = %v", err)
	}

	tests := []struct {
		pkg      string
		wantOK   bool
		wantName string
	}{
		{"com.acme", true, "com.acme.*"},
		{"com.acme.widgets", true, "com.acme.*"},
		{"com.acme.internal", false, ""},
		{"com.acme.internal.impl", false, ""},
		{"com.acmex", true, "*"},
		{"org.slf4j", true, "org.slf4j"},
		{"org.slf4j.spi", true, "*"},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			in, ok := ins.Select(tt.pkg)
			if ok != tt.wantOK {
				t.Fatalf("Select(%q) ok = %v, want %v", tt.pkg, ok, tt.wantOK)
			}
			if ok && in.Clause.Name != tt.wantName {
				t.Errorf("Select(%q) matched %q, want %q", tt.pkg, in.Clause.Name, tt.wantName)
			}
		})
	}

	if !ins[2].Literal() || ins[1].Literal() {
		t.Error("Literal() misclassified patterns")
	}
	if !ins[0].Negated() {
		t.Error("Negated() = false for '!' pattern")
	}
}
