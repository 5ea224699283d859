// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema
// definition.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	cfg, err := cueutil.Decode[Config](schema, data, "#Config", cueutil.WithFilename("config.cue"))
package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize caps the size of a decoded document (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	options struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures Decode.
	Option func(*options)
)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *options) { o.maxFileSize = size }
}

// WithConcrete controls whether every value must be concrete after
// unification. Defaults to true.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// Decode compiles schema, unifies the definition at def with data,
// validates the result and decodes it into a T.
func Decode[T any](schema, data []byte, def string, opts ...Option) (*T, error) {
	o := options{maxFileSize: DefaultMaxFileSize, concrete: true, filename: "<input>"}
	for _, opt := range opts {
		opt(&o)
	}

	if int64(len(data)) > o.maxFileSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", o.filename, len(data), o.maxFileSize)
	}

	cctx := cuecontext.New()
	schemaValue := cctx.CompileBytes(schema)
	if err := schemaValue.Err(); err != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	root := schemaValue.LookupPath(cue.ParsePath(def))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", def, err)
	}

	user := cctx.CompileBytes(data, cue.Filename(o.filename))
	if err := user.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}

	unified := root.Unify(user)
	var validateOpts []cue.Option
	if o.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &out, nil
}
