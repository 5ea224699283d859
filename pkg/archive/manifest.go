// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// ManifestVersion is the main attribute every manifest starts with.
	ManifestVersion = "Manifest-Version"

	// maxLineBytes is the manifest line length limit, excluding the line break.
	maxLineBytes = 72
)

// ErrManifest is the sentinel error wrapped by manifest parse failures.
var ErrManifest = errors.New("invalid manifest")

type (
	// Attribute is one `Name: value` manifest header.
	Attribute struct {
		Name  string
		Value string
	}

	// Attributes is an ordered header list with case-insensitive lookup.
	Attributes []Attribute

	// Section is a per-entry manifest section introduced by a `Name:` header.
	Section struct {
		Name  string
		Attrs Attributes
	}

	// Manifest is a parsed META-INF/MANIFEST.MF. Main holds the main
	// attributes; Sections keeps per-entry sections for round trip.
	Manifest struct {
		Main     Attributes
		Sections []Section
	}
)

// Get returns the value of name.
func (as Attributes) Get(name string) (string, bool) {
	for _, a := range as {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// Set replaces the value of name in place or appends it.
func (as *Attributes) Set(name, value string) {
	for i := range *as {
		if strings.EqualFold((*as)[i].Name, name) {
			(*as)[i].Value = value
			return
		}
	}
	*as = append(*as, Attribute{Name: name, Value: value})
}

// Delete removes name.
func (as *Attributes) Delete(name string) {
	for i := range *as {
		if strings.EqualFold((*as)[i].Name, name) {
			*as = append((*as)[:i], (*as)[i+1:]...)
			return
		}
	}
}

// NewManifest returns a manifest carrying only Manifest-Version: 1.0.
func NewManifest() *Manifest {
	return &Manifest{Main: Attributes{{Name: ManifestVersion, Value: "1.0"}}}
}

// Get returns the main attribute name, or "" when absent.
func (m *Manifest) Get(name string) string {
	v, _ := m.Main.Get(name)
	return v
}

// Lookup returns the main attribute name and whether it is present.
func (m *Manifest) Lookup(name string) (string, bool) { return m.Main.Get(name) }

// Set stores a main attribute.
func (m *Manifest) Set(name, value string) { m.Main.Set(name, value) }

// Delete removes a main attribute.
func (m *Manifest) Delete(name string) { m.Main.Delete(name) }

// Keys returns the main attribute names in order.
func (m *Manifest) Keys() []string {
	out := make([]string, len(m.Main))
	for i, a := range m.Main {
		out[i] = a.Name
	}
	return out
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	out := &Manifest{Main: append(Attributes(nil), m.Main...)}
	for _, s := range m.Sections {
		out.Sections = append(out.Sections, Section{Name: s.Name, Attrs: append(Attributes(nil), s.Attrs...)})
	}
	return out
}

// ParseManifest reads a manifest in the JAR text format.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	current := &m.Main
	started := false

	lines, err := logicalLines(data)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		lineNo := i + 1
		if line == "" {
			if started {
				current = nil
				started = false
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: line %d: invalid header field %q", ErrManifest, lineNo, line)
		}
		value = strings.TrimPrefix(value, " ")

		if current == nil {
			if !strings.EqualFold(name, "Name") {
				return nil, fmt.Errorf("%w: line %d: section must start with Name, got %q", ErrManifest, lineNo, name)
			}
			m.Sections = append(m.Sections, Section{Name: value})
			current = &m.Sections[len(m.Sections)-1].Attrs
			started = true
			continue
		}
		current.Set(name, value)
		started = true
	}
	return m, nil
}

// logicalLines splits data into header lines, joining continuation lines.
func logicalLines(data []byte) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.HasPrefix(line, " ") {
			if len(out) == 0 || out[len(out)-1] == "" {
				return nil, fmt.Errorf("%w: continuation line without header", ErrManifest)
			}
			out[len(out)-1] += line[1:]
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return out, nil
}

// Bytes encodes the manifest.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = m.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo encodes the manifest in the JAR text format: Manifest-Version
// first, CRLF line breaks, lines wrapped at 72 bytes.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	bw := &countingWriter{w: w}
	version, ok := m.Main.Get(ManifestVersion)
	if !ok {
		version = "1.0"
	}
	writeHeader(bw, ManifestVersion, version)
	for _, a := range m.Main {
		if strings.EqualFold(a.Name, ManifestVersion) {
			continue
		}
		writeHeader(bw, a.Name, a.Value)
	}
	bw.writeString("\r\n")

	for _, s := range m.Sections {
		writeHeader(bw, "Name", s.Name)
		for _, a := range s.Attrs {
			writeHeader(bw, a.Name, a.Value)
		}
		bw.writeString("\r\n")
	}
	return bw.n, bw.err
}

func writeHeader(w *countingWriter, name, value string) {
	line := name + ": " + value
	limit := maxLineBytes
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		w.writeString(line[:cut])
		w.writeString("\r\n ")
		line = line[cut:]
		limit = maxLineBytes - 1
	}
	w.writeString(line)
	w.writeString("\r\n")
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countingWriter) writeString(s string) {
	_, _ = io.WriteString(c, s)
}
