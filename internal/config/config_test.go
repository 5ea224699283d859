// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/google/go-cmp/cmp"

	"github.com/zhanleewo/fuse/internal/issue"
	"github.com/zhanleewo/fuse/internal/testutil"
	"github.com/zhanleewo/fuse/pkg/bundle"
)

func loadFrom(t *testing.T, opts LoadOptions) (*Loaded, error) {
	t.Helper()
	return LoadWithPath(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if mode, err := cfg.Mode(); err != nil || mode != bundle.Keep {
		t.Errorf("Mode() = (%v, %v), want keep", mode, err)
	}
	if cfg.Stream.BufferSize != bundle.DefaultBufferSize {
		t.Errorf("Stream.BufferSize = %d, want %d", cfg.Stream.BufferSize, bundle.DefaultBufferSize)
	}
	if cfg.Stream.PropagateErrors {
		t.Error("Stream.PropagateErrors should default to false")
	}
	if cfg.Log.Level != LogLevelInfo {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("default config is invalid: %v", errs)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())

	loaded, err := loadFrom(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if diff := cmp.Diff(DefaultConfig(), loaded.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	testutil.MustWriteFile(t, path, `
overwrite_mode: "MERGE"
versions_file: "/etc/fabwrap/versions.yaml"
stream: buffer_size: 4096
log: level: "debug"
`)

	loaded, err := loadFrom(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}

	want := DefaultConfig()
	want.OverwriteMode = "MERGE"
	want.VersionsFile = "/etc/fabwrap/versions.yaml"
	want.Stream.BufferSize = 4096
	want.Log.Level = LogLevelDebug
	if diff := cmp.Diff(want, loaded.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if mode, _ := loaded.Mode(); mode != bundle.Merge {
		t.Errorf("Mode() = %v, want merge", mode)
	}
}

func TestLoad_WorkingDirectoryFallback(t *testing.T) {
	wd := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(wd, "config.cue"), `cache_dir: "/var/cache/fabwrap"`)
	t.Chdir(wd)

	loaded, err := loadFrom(t, LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != "config.cue" || loaded.CacheDir != "/var/cache/fabwrap" {
		t.Errorf("Load() = (%q, cache %q), want the working directory file", loaded.Path, loaded.CacheDir)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `stream: buffer_size: 4096`)
	t.Setenv("FABWRAP_STREAM_BUFFER_SIZE", "8192")
	t.Setenv("FABWRAP_STREAM_PROPAGATE_ERRORS", "true")
	t.Setenv("FABWRAP_OVERWRITE_MODE", "overwrite")

	loaded, err := loadFrom(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Stream.BufferSize != 8192 || !loaded.Stream.PropagateErrors {
		t.Errorf("Stream = %+v, want environment values", loaded.Stream)
	}
	if mode, _ := loaded.Mode(); mode != bundle.Overwrite {
		t.Errorf("Mode() = %v, want overwrite", mode)
	}
	if got := len(loaded.StreamOptions()); got != 2 {
		t.Errorf("StreamOptions() returned %d options, want 2", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		env     map[string]string
		wantErr error
	}{
		{name: "unknown field", config: `colour: "blue"`},
		{name: "invalid mode", config: `overwrite_mode: "replace"`},
		{name: "buffer too small", config: `stream: buffer_size: 16`},
		{name: "cue syntax", config: `stream: {`},
		{name: "invalid env level", env: map[string]string{"FABWRAP_LOG_LEVEL": "loud"}, wantErr: ErrInvalidConfig},
		{name: "invalid env mode", env: map[string]string{"FABWRAP_OVERWRITE_MODE": "replace"}, wantErr: ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.config != "" {
				testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), tt.config)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := loadFrom(t, LoadOptions{ConfigDirPath: dir})
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Issue = %d, want ConfigLoadFailedId", ae.Issue)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, err := loadFrom(t, LoadOptions{ConfigFilePath: missing})

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
	}
	if ae.Resource != missing || len(ae.Suggestions) == 0 {
		t.Errorf("ActionableError = %+v", ae)
	}
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	cfg := &Config{
		OverwriteMode: "merge",
		VersionsFile:  "versions.toml",
		CacheDir:      "/tmp/fabwrap cache",
		Stream:        StreamConfig{BufferSize: 1024, PropagateErrors: true},
		Resolver:      ResolverConfig{CacheSize: 16},
		Log:           LogConfig{Level: LogLevelWarn},
	}
	path := filepath.Join(t.TempDir(), "custom.cue")
	testutil.MustWriteFile(t, path, GenerateCUE(cfg))

	loaded, err := loadFrom(t, LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v\n%s", err, GenerateCUE(cfg))
	}
	if diff := cmp.Diff(cfg, loaded.Config); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fabwrap")
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	testutil.MustWriteFile(t, path, `overwrite_mode: "merge"`)
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"merge"`) {
		t.Error("CreateDefaultConfig() replaced an existing file")
	}

	loaded, err := LoadWithPath(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Path != path || loaded.OverwriteMode != "merge" {
		t.Errorf("Load() = (%q, %q), want the created file", loaded.Path, loaded.OverwriteMode)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  slog.Level
		valid bool
	}{
		{LogLevelDebug, slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{LogLevelWarn, slog.LevelWarn, true},
		{LogLevelError, slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		if got := tt.level.Slog(); got != tt.want {
			t.Errorf("%q.Slog() = %v, want %v", tt.level, got, tt.want)
		}
		ok, errs := tt.level.IsValid()
		if ok != tt.valid {
			t.Errorf("%q.IsValid() = %v, want %v", tt.level, ok, tt.valid)
		}
		if !ok && !errors.Is(errs[0], ErrInvalidLogLevel) {
			t.Errorf("%q.IsValid() error = %v, want ErrInvalidLogLevel", tt.level, errs[0])
		}
	}
}

// TestSchemaMatchesConfig keeps config_schema.cue and the Config json tags
// in step, including nested structs.
func TestSchemaMatchesConfig(t *testing.T) {
	schema := cuecontext.New().CompileBytes(configSchema)
	if err := schema.Err(); err != nil {
		t.Fatal(err)
	}
	compare(t, "#Config", schema.LookupPath(cue.ParsePath("#Config")), reflect.TypeFor[Config]())
}

func compare(t *testing.T, path string, val cue.Value, typ reflect.Type) {
	t.Helper()

	goFields := make(map[string]reflect.Type)
	for i := range typ.NumField() {
		f := typ.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		goFields[name] = f.Type
	}

	iter, err := val.Fields(cue.Optional(true))
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	var cueNames []string
	for iter.Next() {
		name := strings.TrimSuffix(iter.Selector().String(), "?")
		cueNames = append(cueNames, name)
		ft, ok := goFields[name]
		if !ok {
			t.Errorf("%s.%s has no Go field", path, name)
			continue
		}
		if ft.Kind() == reflect.Struct {
			compare(t, path+"."+name, iter.Value(), ft)
		}
	}
	for name := range goFields {
		if !slices.Contains(cueNames, name) {
			t.Errorf("Go field %s.%s is missing from the schema", path, name)
		}
	}
}
