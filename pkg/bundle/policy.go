// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zhanleewo/fuse/pkg/archive"
	"github.com/zhanleewo/fuse/pkg/header"
)

// OverwriteMode selects how an existing manifest is treated.
type OverwriteMode int

const (
	// Keep trusts an existing manifest declaring imports or exports.
	Keep OverwriteMode = iota
	// Merge regenerates the manifest, folding in the headers of the existing one.
	Merge
	// Overwrite always regenerates the manifest from scratch.
	Overwrite
)

// ErrInvalidMode is returned for unknown overwrite modes.
var ErrInvalidMode = errors.New("invalid overwrite mode")

var modeNames = [...]string{Keep: "keep", Merge: "merge", Overwrite: "overwrite"}

func (m OverwriteMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("OverwriteMode(%d)", int(m))
	}
	return modeNames[m]
}

// Validate returns an error wrapping ErrInvalidMode for unknown modes.
func (m OverwriteMode) Validate() error {
	if m < Keep || m > Overwrite {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return nil
}

// ParseOverwriteMode parses keep, merge or overwrite, ignoring case.
// An empty string means Keep.
func ParseOverwriteMode(s string) (OverwriteMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Keep, nil
	}
	for i, name := range modeNames {
		if s == name {
			return OverwriteMode(i), nil
		}
	}
	return Keep, fmt.Errorf("%w: %q (want keep, merge or overwrite)", ErrInvalidMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m OverwriteMode) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OverwriteMode) UnmarshalText(text []byte) error {
	parsed, err := ParseOverwriteMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// NeedsRegeneration reports whether the manifest of a must be computed.
// It is false only in Keep mode for an archive whose manifest declares
// Import-Package or Export-Package.
func NeedsRegeneration(a *archive.Archive, mode OverwriteMode) bool {
	m := a.Manifest()
	if m == nil || mode != Keep {
		return true
	}
	_, hasExports := m.Lookup(header.ExportPackage)
	_, hasImports := m.Lookup(header.ImportPackage)
	return !hasExports && !hasImports
}
