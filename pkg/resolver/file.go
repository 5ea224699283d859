// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/zhanleewo/fuse/internal/cueutil"
)

//go:embed versions_schema.cue
var versionsSchema []byte

var (
	// ErrUnsupportedFormat is returned for version tables with an unknown
	// file extension.
	ErrUnsupportedFormat = errors.New("unsupported version table format")
	// ErrInvalidTable is returned when a YAML or TOML table has a bad entry.
	ErrInvalidTable = errors.New("invalid version table")

	packageKey = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*(\.\*)?$`)
)

type versionTable struct {
	Packages map[string]string `json:"packages" yaml:"packages" toml:"packages"`
}

// LoadFile reads a version table from path. The format follows the file
// extension: .cue, .yaml, .yml or .toml. Every format has the shape
//
//	packages: { "com.acme.widgets": "[1.0,2)", "org.slf4j.*": "[2,3)" }
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read version table: %w", err)
	}
	return Load(filepath.Base(path), data)
}

// Load decodes a version table; name selects the format by extension and
// labels errors.
func Load(name string, data []byte) (Static, error) {
	var table versionTable
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		decoded, err := cueutil.Decode[versionTable](versionsSchema, data, "#Versions", cueutil.WithFilename(name))
		if err != nil {
			return nil, err
		}
		table = *decoded
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := table.validate(name); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := table.validate(name); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return Static(table.Packages), nil
}

func (t versionTable) validate(name string) error {
	for k, v := range t.Packages {
		if !packageKey.MatchString(k) {
			return fmt.Errorf("%w: %s: packages: bad package name %q", ErrInvalidTable, name, k)
		}
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s: packages.%s: empty version", ErrInvalidTable, name, k)
		}
	}
	return nil
}
