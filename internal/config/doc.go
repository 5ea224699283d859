// SPDX-License-Identifier: MPL-2.0

// Package config handles fabwrap configuration using Viper with CUE as the
// file format.
//
// Configuration is read from config.cue in the user config directory
// (~/.config/fabwrap on Linux) or the working directory, validated against
// the embedded config_schema.cue, and overridden by FABWRAP_* environment
// variables. Nested keys use underscores, e.g. FABWRAP_STREAM_BUFFER_SIZE.
package config
