// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhanleewo/fuse/internal/config"
	"github.com/zhanleewo/fuse/internal/issue"
	"github.com/zhanleewo/fuse/pkg/archive"
	"github.com/zhanleewo/fuse/pkg/bundle"
	"github.com/zhanleewo/fuse/pkg/header"
	"github.com/zhanleewo/fuse/pkg/instructions"
	"github.com/zhanleewo/fuse/pkg/resolver"
	"github.com/zhanleewo/fuse/pkg/resource"
)

// exitUsage is returned for malformed user input such as bad instructions.
const exitUsage = 2

type wrapFlags struct {
	output       string
	query        string
	label        string
	mode         string
	extraImports string
	embed        []string
	versions     string
}

func newWrapCommand(app *App) *cobra.Command {
	var flags wrapFlags
	cmd := &cobra.Command{
		Use:   "wrap <archive>",
		Short: "Compute the bundle manifest of an archive",
		Long: `Compute the bundle manifest of an archive and write the rewritten archive.

Instructions are a query string of key=value pairs joined with '&', e.g.
  Bundle-SymbolicName=com.acme.app&Import-Package=com.acme.*,!org.junit.*

Archives that already declare packages are copied unchanged in keep mode.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runWrap(cmd.Context(), args[0], flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "-", "output file ('-' for stdout)")
	f.StringVarP(&flags.query, "instructions", "q", "", "manifest instructions as a query string")
	f.StringVar(&flags.label, "label", "", "name used in logs and as the default symbolic name (default: archive file name)")
	f.StringVar(&flags.mode, "mode", "", "overwrite mode: keep, merge or overwrite (default from config)")
	f.StringVar(&flags.extraImports, "extra-imports", "", "Import-Package clauses merged into the computed header")
	f.StringArrayVar(&flags.embed, "embed", nil, "embed a resource as path=source (repeatable)")
	f.StringVar(&flags.versions, "versions", "", "package version table used for missing import versions")
	return cmd
}

func (app *App) runWrap(ctx context.Context, path string, flags wrapFlags) error {
	cfg := app.Config()

	opts, err := app.bundleOptions(cfg.Config, flags)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("open archive").
			WithResource(path).
			WithIssue(issue.ArchiveNotFoundId).
			Wrap(err).
			BuildError()
	}
	defer func() { _ = src.Close() }()

	label := flags.label
	if label == "" {
		label = filepath.Base(path)
	}
	res, err := bundle.CreateBundleFromQuery(ctx, src, flags.query, label, opts)
	if err != nil {
		return classifyWrapError(err, path)
	}

	n, err := app.writeOutput(flags.output, res.Stream)
	if err != nil {
		return err
	}
	app.printSummary(label, flags.output, n, res)
	return nil
}

// bundleOptions merges flags over configuration.
func (app *App) bundleOptions(cfg *config.Config, flags wrapFlags) (bundle.Options, error) {
	modeText := flags.mode
	if modeText == "" {
		modeText = cfg.OverwriteMode
	}
	mode, err := bundle.ParseOverwriteMode(modeText)
	if err != nil {
		return bundle.Options{}, &ExitError{Code: exitUsage, Err: issue.NewErrorContext().
			WithOperation("select overwrite mode").
			WithSuggestion("Use one of: keep, merge, overwrite").
			WithIssue(issue.InvalidOverwriteModeId).
			Wrap(err).
			Build()}
	}

	embedded := make([]resource.Resource, 0, len(flags.embed))
	for _, raw := range flags.embed {
		r, err := resource.ParseResource(raw)
		if err != nil {
			return bundle.Options{}, &ExitError{Code: exitUsage, Err: issue.NewErrorContext().
				WithOperation("parse --embed").
				WithResource(raw).
				WithSuggestion("Write resources as path=source, e.g. lib/dep.jar=https://repo.example.com/dep.jar").
				WithIssue(issue.ResourceUnavailableId).
				Wrap(err).
				Build()}
		}
		embedded = append(embedded, r)
	}

	versionsFile := flags.versions
	if versionsFile == "" {
		versionsFile = cfg.VersionsFile
	}
	var r resolver.Resolver
	if versionsFile != "" {
		r, err = loadResolver(versionsFile, cfg.Resolver.CacheSize)
		if err != nil {
			return bundle.Options{}, err
		}
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		if dir, dirErr := config.DefaultCacheDir(); dirErr == nil {
			cacheDir = dir
		} else {
			slog.Warn("resource cache disabled", "error", dirErr)
		}
	}

	return bundle.Options{
		Mode:         mode,
		Embedded:     embedded,
		ExtraImports: flags.extraImports,
		Resolver:     r,
		Embedder:     &resource.Embedder{CacheDir: cacheDir},
		Stream:       cfg.StreamOptions(),
	}, nil
}

func loadResolver(path string, cacheSize int) (resolver.Resolver, error) {
	table, err := resolver.LoadFile(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load version table").
			WithResource(path).
			WithIssue(issue.VersionTableInvalidId).
			Wrap(err).
			BuildError()
	}
	return resolver.NewCached(table, cacheSize)
}

// classifyWrapError maps bundle failures to catalogued issues. Errors caused
// by user input exit with exitUsage.
func classifyWrapError(err error, path string) error {
	ctx := issue.NewErrorContext().WithOperation("wrap archive").WithResource(path).Wrap(err)
	switch {
	case errors.Is(err, instructions.ErrMalformedInstruction), errors.Is(err, instructions.ErrDecode):
		return &ExitError{Code: exitUsage, Err: ctx.WithIssue(issue.MalformedInstructionsId).
			WithSuggestion("Percent-encode '&', '=' and '%' inside values").
			Build()}
	case errors.Is(err, header.ErrSyntax):
		return &ExitError{Code: exitUsage, Err: ctx.WithIssue(issue.HeaderSyntaxId).
			WithSuggestion("Quote version ranges that contain commas").
			Build()}
	case errors.Is(err, archive.ErrFormat), errors.Is(err, archive.ErrManifest):
		return ctx.WithIssue(issue.ArchiveInvalidId).BuildError()
	default:
		return ctx.BuildError()
	}
}

// writeOutput copies the bundle stream to path, or stdout for "-". A
// partially written file is removed on failure.
func (app *App) writeOutput(path string, stream io.ReadCloser) (n int64, err error) {
	defer func() {
		if closeErr := stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if path == "-" || path == "" {
		return io.Copy(app.stdout, stream)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, issue.NewErrorContext().
			WithOperation("create output").
			WithResource(path).
			WithIssue(issue.OutputNotWritableId).
			Wrap(err).
			BuildError()
	}
	n, err = io.Copy(out, stream)
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = errors.New("bundle stream was empty")
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, issue.NewErrorContext().
			WithOperation("write bundle").
			WithResource(path).
			WithIssue(issue.OutputNotWritableId).
			Wrap(err).
			BuildError()
	}
	return n, nil
}

func (app *App) printSummary(label, output string, n int64, res *bundle.Result) {
	action := "copied"
	if res.Regenerated {
		action = "regenerated"
	}
	if output == "" || output == "-" {
		output = "stdout"
	}
	fmt.Fprintf(app.stderr, "%s %s %s %s (%s, %d bytes)\n",
		SuccessStyle.Render("✓"), KeyStyle.Render(label), SubtitleStyle.Render("→"), output, action, n)

	if app.verbose && len(res.ActualImports) > 0 {
		fmt.Fprintln(app.stderr, SubtitleStyle.Render("  required imports:"))
		fmt.Fprintln(app.stderr, "    "+strings.Join(res.ActualImports.Sorted(), "\n    "))
	}
}
