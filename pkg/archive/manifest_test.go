// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseManifest(t *testing.T) {
	input := "Manifest-Version: 1.0\n" +
		"Import-Package: com.acme.widgets;version=1.0,org.slf4j;resoluti\n" +
		" on:=optional\n" +
		"Bundle-Name: Widgets\n" +
		"\n" +
		"Name: com/acme/Widget.class\n" +
		"SHA-256-Digest: abc\n" +
		"\n"

	m, err := ParseManifest([]byte(input))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}

	want := &Manifest{
		Main: Attributes{
			{Name: "Manifest-Version", Value: "1.0"},
			{Name: "Import-Package", Value: "com.acme.widgets;version=1.0,org.slf4j;resolution:=optional"},
			{Name: "Bundle-Name", Value: "Widgets"},
		},
		Sections: []Section{{Name: "com/acme/Widget.class", Attrs: Attributes{{Name: "SHA-256-Digest", Value: "abc"}}}},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("ParseManifest() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	tests := map[string]string{
		"missing colon":        "Manifest-Version 1.0\n",
		"section without Name": "Manifest-Version: 1.0\n\nFoo: bar\n",
		"orphan continuation":  " continued\n",
		"space in header name": "Bad Name: x\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(input)); !errors.Is(err, ErrManifest) {
				t.Errorf("ParseManifest() error = %v, want ErrManifest", err)
			}
		})
	}
}

func TestManifest_WriteTo(t *testing.T) {
	long := strings.Repeat("com.acme.package", 10)
	m := &Manifest{Main: Attributes{
		{Name: "Bundle-Name", Value: "x"},
		{Name: "Manifest-Version", Value: "1.0"},
		{Name: "Import-Package", Value: long},
	}}

	out := string(m.Bytes())
	if !strings.HasPrefix(out, "Manifest-Version: 1.0\r\nBundle-Name: x\r\n") {
		t.Errorf("Manifest-Version must come first, got:\n%s", out)
	}
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if len(line) > maxLineBytes {
			t.Errorf("line exceeds %d bytes: %q", maxLineBytes, line)
		}
	}

	reparsed, err := ParseManifest([]byte(out))
	if err != nil {
		t.Fatalf("ParseManifest(written) error = %v", err)
	}
	if got := reparsed.Get("Import-Package"); got != long {
		t.Errorf("wrapped header did not survive round trip: %q", got)
	}
}

func TestManifest_WriteTo_DefaultsVersion(t *testing.T) {
	m := &Manifest{Main: Attributes{{Name: "Bundle-Name", Value: "x"}}}
	if out := string(m.Bytes()); !strings.HasPrefix(out, "Manifest-Version: 1.0\r\n") {
		t.Errorf("missing default Manifest-Version:\n%s", out)
	}
}

func TestAttributes_SetDelete(t *testing.T) {
	m := NewManifest()
	m.Set("Import-Package", "a")
	m.Set("import-package", "b")
	if diff := cmp.Diff([]string{"Manifest-Version", "Import-Package"}, m.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if m.Get("Import-Package") != "b" {
		t.Errorf("Set() did not replace case-insensitively")
	}
	m.Delete("IMPORT-PACKAGE")
	if _, ok := m.Lookup("Import-Package"); ok {
		t.Error("Delete() left the header in place")
	}

	clone := m.Clone()
	clone.Set("Bundle-Name", "y")
	if _, ok := m.Lookup("Bundle-Name"); ok {
		t.Error("Clone() shares attributes with the original")
	}
}
