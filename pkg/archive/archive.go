// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	// ManifestPath is the archive path of the manifest entry.
	ManifestPath = "META-INF/MANIFEST.MF"
	// MetaInfDir is the directory entry holding the manifest.
	MetaInfDir = "META-INF/"
)

var (
	// ErrFormat is returned when the input is not a readable ZIP archive.
	ErrFormat = errors.New("invalid archive format")
	// ErrClosed is returned when a closed archive is used.
	ErrClosed = errors.New("archive is closed")
)

type (
	// Entry is one named archive entry.
	Entry struct {
		Name     string
		Data     []byte
		Modified time.Time
		Method   uint16
	}

	// Archive is an in-memory ZIP archive with one distinguished manifest.
	// An Archive is owned by a single caller and is not safe for concurrent use.
	Archive struct {
		entries  []*Entry
		index    map[string]int
		manifest *Manifest
		modified time.Time
		original []byte
		cleanup  []func() error
		closed   bool
	}
)

// IsDir reports whether the entry is a directory entry.
func (e *Entry) IsDir() bool { return strings.HasSuffix(e.Name, "/") }

// New returns an empty archive without a manifest.
func New() *Archive {
	return &Archive{index: make(map[string]int)}
}

// Read loads a complete archive from r. The raw bytes are retained so an
// untouched archive can be re-emitted unchanged.
func Read(r io.Reader) (*Archive, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return FromBytes(data)
}

// ReadFile loads the archive stored at path.
func ReadFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return FromBytes(data)
}

// FromBytes parses a ZIP archive held in memory.
func FromBytes(data []byte) (a *Archive, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	a = New()
	a.original = data
	for _, f := range zr.File {
		content, readErr := readZipFile(f)
		if readErr != nil {
			return nil, fmt.Errorf("%w: entry %s: %w", ErrFormat, f.Name, readErr)
		}
		if strings.EqualFold(f.Name, ManifestPath) {
			m, parseErr := ParseManifest(content)
			if parseErr != nil {
				return nil, parseErr
			}
			a.manifest = m
			a.modified = f.Modified
			continue
		}
		a.put(&Entry{Name: f.Name, Data: content, Modified: f.Modified, Method: f.Method})
	}
	return a, nil
}

func readZipFile(f *zip.File) (data []byte, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return io.ReadAll(rc)
}

func (a *Archive) put(e *Entry) {
	if i, ok := a.index[e.Name]; ok {
		a.entries[i] = e
		return
	}
	a.index[e.Name] = len(a.entries)
	a.entries = append(a.entries, e)
}

// Put stores data at name, replacing an existing entry in place.
// Putting the manifest path replaces the manifest.
func (a *Archive) Put(name string, data []byte) error {
	if strings.EqualFold(name, ManifestPath) {
		m, err := ParseManifest(data)
		if err != nil {
			return err
		}
		a.manifest = m
		return nil
	}
	a.put(&Entry{Name: name, Data: data, Modified: time.Now(), Method: zip.Deflate})
	return nil
}

// Get returns the content stored at name.
func (a *Archive) Get(name string) ([]byte, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.entries[i].Data, true
}

// Has reports whether an entry exists at name.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Entries returns the entries in archive order, excluding the manifest.
func (a *Archive) Entries() []*Entry {
	return slices.Clone(a.entries)
}

// Names returns the entry names in archive order, excluding the manifest.
func (a *Archive) Names() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Name
	}
	return out
}

// Manifest returns the archive manifest, or nil when there is none.
func (a *Archive) Manifest() *Manifest { return a.manifest }

// SetManifest replaces the archive manifest.
func (a *Archive) SetManifest(m *Manifest) { a.manifest = m }

// Original returns the bytes the archive was read from, or nil for archives
// built in memory.
func (a *Archive) Original() []byte { return a.original }

// Packages returns the sorted dotted names of the directories holding files,
// ignoring META-INF and OSGI-OPT.
func (a *Archive) Packages() []string {
	return packagesOf(a.Names())
}

func packagesOf(names []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			continue
		}
		dir := path.Dir(name)
		if dir == "." || dir == "META-INF" || strings.HasPrefix(dir, "META-INF/") ||
			dir == "OSGI-OPT" || strings.HasPrefix(dir, "OSGI-OPT/") {
			continue
		}
		pkg := strings.ReplaceAll(dir, "/", ".")
		if _, ok := seen[pkg]; ok {
			continue
		}
		seen[pkg] = struct{}{}
		out = append(out, pkg)
	}
	slices.Sort(out)
	return out
}

// PackagesInFile lists the packages of the ZIP archive stored at path.
func PackagesInFile(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer func() { _ = zr.Close() }()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return packagesOf(names), nil
}

// OnClose registers fn to run when the archive is closed. Hooks run in
// reverse registration order.
func (a *Archive) OnClose(fn func() error) {
	a.cleanup = append(a.cleanup, fn)
}

// Close releases resources registered with OnClose. Close is idempotent.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	return errors.Join(errs...)
}

// WriteTo serializes the archive as a ZIP stream. The manifest directory and
// manifest come first, followed by the remaining entries in order.
func (a *Archive) WriteTo(w io.Writer) (n int64, err error) {
	if a.closed {
		return 0, ErrClosed
	}
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		n = cw.n
	}()

	if a.manifest != nil {
		if _, err = zw.CreateHeader(&zip.FileHeader{Name: MetaInfDir, Method: zip.Store, Modified: a.modified}); err != nil {
			return 0, err
		}
		fw, createErr := zw.CreateHeader(&zip.FileHeader{Name: ManifestPath, Method: zip.Deflate, Modified: a.modified})
		if createErr != nil {
			return 0, createErr
		}
		if _, err = a.manifest.WriteTo(fw); err != nil {
			return 0, err
		}
	}

	for _, e := range a.entries {
		if a.manifest != nil && e.Name == MetaInfDir {
			continue
		}
		method := e.Method
		if e.IsDir() {
			method = zip.Store
		}
		fw, createErr := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method, Modified: e.Modified})
		if createErr != nil {
			return 0, createErr
		}
		if _, err = fw.Write(e.Data); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// Bytes serializes the archive into memory.
func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
