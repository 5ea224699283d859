// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// JarManifestPath is the manifest location inside a JAR.
const JarManifestPath = "META-INF/MANIFEST.MF"

// JarEntry is a named file used to build test archives.
type JarEntry struct {
	Name string
	Data string
}

// BuildJar returns the bytes of a ZIP archive holding the manifest (skipped
// when empty) followed by entries in order.
func BuildJar(t testing.TB, manifest string, entries ...JarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if manifest != "" {
		w, err := zw.Create(JarManifestPath)
		if err != nil {
			t.Fatalf("failed to create manifest entry: %v", err)
		}
		if _, err := io.WriteString(w, manifest); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
	}
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", e.Name, err)
		}
		if _, err := io.WriteString(w, e.Data); err != nil {
			t.Fatalf("failed to write entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}
	return buf.Bytes()
}

// WriteJar builds a JAR with BuildJar and stores it as dir/name.
func WriteJar(t testing.TB, dir, name, manifest string, entries ...JarEntry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildJar(t, manifest, entries...), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ReadJar opens archive bytes and returns the entry contents by name along
// with the entry names in archive order.
func ReadJar(t testing.TB, data []byte) (map[string]string, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	contents := make(map[string]string, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		MustClose(t, rc)
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		contents[f.Name] = string(b)
		names = append(names, f.Name)
	}
	return contents, names
}
