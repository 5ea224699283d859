// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"testing"

	"github.com/zhanleewo/fuse/internal/testutil"
	"github.com/zhanleewo/fuse/pkg/archive"
)

func TestParseOverwriteMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    OverwriteMode
		wantErr bool
	}{
		{in: "", want: Keep},
		{in: "keep", want: Keep},
		{in: "MERGE", want: Merge},
		{in: " Overwrite ", want: Overwrite},
		{in: "replace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOverwriteMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Errorf("ParseOverwriteMode(%q) error = %v, want ErrInvalidMode", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseOverwriteMode(%q) = (%v, %v), want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestOverwriteMode_Text(t *testing.T) {
	t.Parallel()

	var m OverwriteMode
	if err := m.UnmarshalText([]byte("merge")); err != nil || m != Merge {
		t.Fatalf("UnmarshalText(merge) = (%v, %v)", m, err)
	}
	if b, err := m.MarshalText(); err != nil || string(b) != "merge" {
		t.Errorf("MarshalText() = (%q, %v)", b, err)
	}
	if _, err := OverwriteMode(7).MarshalText(); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("MarshalText(7) error = %v, want ErrInvalidMode", err)
	}
	if got := OverwriteMode(7).String(); got != "OverwriteMode(7)" {
		t.Errorf("String() = %q", got)
	}
}

func TestNeedsRegeneration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		mode     OverwriteMode
		want     bool
	}{
		{name: "no manifest", mode: Keep, want: true},
		{name: "keep without package headers", manifest: "Manifest-Version: 1.0\r\nCreated-By: javac\r\n\r\n", mode: Keep, want: true},
		{name: "keep with exports", manifest: "Manifest-Version: 1.0\r\nExport-Package: com.acme\r\n\r\n", mode: Keep, want: false},
		{name: "keep with imports", manifest: "Manifest-Version: 1.0\r\nImport-Package: org.slf4j\r\n\r\n", mode: Keep, want: false},
		{name: "merge with exports", manifest: "Manifest-Version: 1.0\r\nExport-Package: com.acme\r\n\r\n", mode: Merge, want: true},
		{name: "overwrite with exports", manifest: "Manifest-Version: 1.0\r\nExport-Package: com.acme\r\n\r\n", mode: Overwrite, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := archive.FromBytes(testutil.BuildJar(t, tt.manifest, testutil.JarEntry{Name: "com/acme/A.class", Data: "x"}))
			if err != nil {
				t.Fatal(err)
			}
			if got := NeedsRegeneration(a, tt.mode); got != tt.want {
				t.Errorf("NeedsRegeneration() = %v, want %v", got, tt.want)
			}
		})
	}
}
