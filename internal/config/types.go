// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zhanleewo/fuse/pkg/bundle"
	"github.com/zhanleewo/fuse/pkg/resolver"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	minBufferSize = 512
	maxBufferSize = 64 * 1024 * 1024
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidStreamConfig is returned for an out of range stream buffer.
	ErrInvalidStreamConfig = errors.New("invalid stream config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// OverwriteMode is the default for `wrap --mode`.
		OverwriteMode string `json:"overwrite_mode" mapstructure:"overwrite_mode"`
		// VersionsFile is a package version table used to fill missing
		// import versions.
		VersionsFile string `json:"versions_file" mapstructure:"versions_file"`
		// CacheDir holds downloaded embedded resources. Empty means DefaultCacheDir.
		CacheDir string         `json:"cache_dir" mapstructure:"cache_dir"`
		Stream   StreamConfig   `json:"stream" mapstructure:"stream"`
		Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`
		Log      LogConfig      `json:"log" mapstructure:"log"`
	}

	// StreamConfig tunes the bundle output stream.
	StreamConfig struct {
		BufferSize      int  `json:"buffer_size" mapstructure:"buffer_size"`
		PropagateErrors bool `json:"propagate_errors" mapstructure:"propagate_errors"`
	}

	// ResolverConfig tunes the version resolver.
	ResolverConfig struct {
		// CacheSize bounds the number of memoized package lookups.
		CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	}

	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		OverwriteMode: bundle.Keep.String(),
		Stream: StreamConfig{
			BufferSize: bundle.DefaultBufferSize,
		},
		Resolver: ResolverConfig{
			CacheSize: resolver.DefaultCacheSize,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}

// Mode parses OverwriteMode.
func (c Config) Mode() (bundle.OverwriteMode, error) {
	return bundle.ParseOverwriteMode(c.OverwriteMode)
}

// StreamOptions converts the stream settings into bundle stream options.
func (c Config) StreamOptions() []bundle.StreamOption {
	opts := []bundle.StreamOption{bundle.WithBufferSize(c.Stream.BufferSize)}
	if c.Stream.PropagateErrors {
		opts = append(opts, bundle.WithErrorPropagation())
	}
	return opts
}

// IsValid returns whether the Config is valid. Environment overrides are
// not covered by the CUE schema, so every field is checked here.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if _, err := c.Mode(); err != nil {
		errs = append(errs, err)
	}
	if c.Stream.BufferSize < minBufferSize || c.Stream.BufferSize > maxBufferSize {
		errs = append(errs, fmt.Errorf("%w: buffer_size %d outside [%d, %d]",
			ErrInvalidStreamConfig, c.Stream.BufferSize, minBufferSize, maxBufferSize))
	}
	if c.Resolver.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: resolver.cache_size must be positive", ErrInvalidConfig))
	}
	if ok, levelErrs := c.Log.Level.IsValid(); !ok {
		errs = append(errs, levelErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Slog maps the level onto slog. Unknown levels map to Info.
func (l LogLevel) Slog() slog.Level {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }
