// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhanleewo/fuse/pkg/analyzer"
	"github.com/zhanleewo/fuse/pkg/archive"
	"github.com/zhanleewo/fuse/pkg/header"
	"github.com/zhanleewo/fuse/pkg/instructions"
	"github.com/zhanleewo/fuse/pkg/resolver"
	"github.com/zhanleewo/fuse/pkg/resource"
)

const (
	// ProvenanceHeader records the label of the archive a bundle was made from.
	ProvenanceHeader = "Generated-By-Fabric-From"

	// DefaultImports is used when no Import-Package instruction is given.
	DefaultImports = "*;resolution:=optional"

	tracerName = "fabwrap/bundle"
)

var (
	// ErrValidation is wrapped by ValidationError.
	ErrValidation = errors.New("invalid bundle request")
	// ErrSynthesisIO is wrapped by SynthesisIOError.
	ErrSynthesisIO = errors.New("bundle synthesis failed")

	invalidSymbolicChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

type (
	// ValidationError reports a missing required argument.
	ValidationError struct {
		Field string
	}

	// SynthesisIOError reports a failure while reading the archive or
	// computing its manifest. Err is the underlying cause.
	SynthesisIOError struct {
		Op    string
		Label string
		Err   error
	}

	// Embedder copies resources into an archive and returns classpath files.
	// *resource.Embedder satisfies it.
	Embedder interface {
		Embed(ctx context.Context, a *archive.Archive, resources []resource.Resource) []string
	}

	// Options tunes CreateBundle. The zero value keeps complete manifests,
	// embeds nothing and uses the default analyzer.
	Options struct {
		Mode         OverwriteMode
		Embedded     []resource.Resource
		ExtraImports string
		Resolver     resolver.Resolver
		Scanner      analyzer.Scanner
		Embedder     Embedder
		Stream       []StreamOption
	}

	// Result is the outcome of CreateBundle. The caller must close Stream.
	Result struct {
		Stream io.ReadCloser
		// ActualImports holds the packages imported without
		// resolution:=optional. Empty when the manifest was kept.
		ActualImports ImportSet
		// Regenerated is false when the input bytes are streamed unchanged.
		Regenerated bool
	}
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s must be provided", ErrValidation, e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *SynthesisIOError) Error() string {
	return fmt.Sprintf("bundle %s: failed to %s: %v", e.Label, e.Op, e.Err)
}

// Unwrap exposes both ErrSynthesisIO and the cause to errors.Is and errors.As.
func (e *SynthesisIOError) Unwrap() []error { return []error{ErrSynthesisIO, e.Err} }

// SanitizeSymbolicName replaces every character outside [A-Za-z0-9_.-]
// with '_'.
func SanitizeSymbolicName(name string) string {
	return invalidSymbolicChars.ReplaceAllString(name, "_")
}

// CreateBundleFromQuery parses query as instructions and calls CreateBundle.
// A malformed query fails before src is read.
func CreateBundleFromQuery(ctx context.Context, src io.Reader, query, label string, opts Options) (*Result, error) {
	instr, err := instructions.Parse(query)
	if err != nil {
		return nil, err
	}
	return CreateBundle(ctx, src, instr, label, opts)
}

// CreateBundle reads the archive from src and returns a stream of the
// bundle built from it. label identifies the archive in logs, errors and the
// provenance header, and is the default symbolic name.
func CreateBundle(ctx context.Context, src io.Reader, instr *instructions.Instructions, label string, opts Options) (res *Result, err error) {
	switch {
	case src == nil:
		return nil, &ValidationError{Field: "source"}
	case instr == nil:
		return nil, &ValidationError{Field: "instructions"}
	case strings.TrimSpace(label) == "":
		return nil, &ValidationError{Field: "label"}
	}
	if err := opts.Mode.Validate(); err != nil {
		return nil, err
	}

	log := slog.With("run", uuid.NewString(), "label", label)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Bundle.Create", trace.WithAttributes(
		attribute.String("bundle.label", label),
		attribute.String("bundle.mode", opts.Mode.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log.Debug("creating bundle", "mode", opts.Mode.String(), "instructions", instr.Encode())

	a, err := archive.Read(src)
	if err != nil {
		return nil, &SynthesisIOError{Op: "read archive", Label: label, Err: err}
	}

	streamOpts := append([]StreamOption{withLogger(log)}, opts.Stream...)
	if !NeedsRegeneration(a, opts.Mode) {
		log.Debug("keeping existing manifest")
		span.SetAttributes(attribute.Bool("bundle.regenerated", false))
		return &Result{Stream: OpenStream(passthrough{a: a}, streamOpts...), ActualImports: ImportSet{}}, nil
	}

	actual, err := regenerate(ctx, log, a, instr, label, opts)
	if err != nil {
		if closeErr := a.Close(); closeErr != nil {
			log.Warn("bundle resources cannot be released", "error", closeErr)
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("bundle.regenerated", true),
		attribute.Int("bundle.actual_imports", len(actual)),
	)
	log.Debug("manifest computed", "imports", a.Manifest().Get(header.ImportPackage))
	return &Result{Stream: OpenStream(a, streamOpts...), ActualImports: actual, Regenerated: true}, nil
}

// regenerate computes and merges the manifest of a. On failure the manifest
// a had before the call is restored.
func regenerate(ctx context.Context, log *slog.Logger, a *archive.Archive, instr *instructions.Instructions, label string, opts Options) (_ ImportSet, err error) {
	prior := a.Manifest()
	defer func() {
		if err != nil {
			a.SetManifest(prior)
			err = &SynthesisIOError{Op: "compute manifest", Label: label, Err: err}
		}
	}()

	scanner := opts.Scanner
	if scanner == nil {
		scanner = analyzer.New(nil)
	}
	embedder := opts.Embedder
	if embedder == nil {
		embedder = &resource.Embedder{}
	}

	props := instr.Clone()
	props.Set(ProvenanceHeader, label)

	var classpath []string
	if len(opts.Embedded) > 0 {
		classpath = embedder.Embed(ctx, a, opts.Embedded)
		log.Debug("resources embedded", "count", len(opts.Embedded), "classpath", len(classpath))
	}

	if opts.Mode == Merge && prior != nil {
		for _, attr := range prior.Main {
			if !props.Has(attr.Name) {
				props.Set(attr.Name, attr.Value)
			}
		}
	}

	props.SetDefault(header.ImportPackage, DefaultImports)
	props.SetDefault(header.ExportPackage, scanner.ExportsFromContents(a))
	bsn := props.Get(header.BundleSymbolicName)
	if strings.TrimSpace(bsn) == "" {
		bsn = label
	}
	props.Set(header.BundleSymbolicName, SanitizeSymbolicName(bsn))

	m, err := scanner.CalcManifest(ctx, a, props, classpath)
	if err != nil {
		return nil, err
	}
	return ApplyImports(ctx, m, opts.ExtraImports, opts.Resolver)
}
