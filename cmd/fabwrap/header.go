// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhanleewo/fuse/internal/issue"
	"github.com/zhanleewo/fuse/pkg/bundle"
	"github.com/zhanleewo/fuse/pkg/header"
	"github.com/zhanleewo/fuse/pkg/resolver"
)

func newHeaderCommand(app *App) *cobra.Command {
	var (
		extra    string
		versions string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "header <Import-Package value>",
		Short: "Normalize an Import-Package header",
		Long: `Parse an Import-Package header, merge extra clauses into it and print
the result the way wrap writes it.

Only version and the standard OSGi directives are kept unless --all is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				clauses, err := header.Parse(args[0])
				if err != nil {
					return headerError(err)
				}
				fmt.Fprintln(app.stdout, header.Print(clauses, nil))
				return nil
			}

			var r resolver.Resolver
			if versions != "" {
				var err error
				if r, err = loadResolver(versions, app.Config().Resolver.CacheSize); err != nil {
					return err
				}
			}
			merged, actual, err := bundle.MergeImports(cmd.Context(), args[0], extra, r)
			if err != nil {
				return headerError(err)
			}
			fmt.Fprintln(app.stdout, merged)
			if app.verbose {
				fmt.Fprintln(app.stderr, SubtitleStyle.Render("required: ")+KeyStyle.Render(strings.Join(actual.Sorted(), ", ")))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&extra, "extra", "", "clauses merged into the header; they win on conflicts")
	cmd.Flags().StringVar(&versions, "versions", "", "package version table used for missing versions")
	cmd.Flags().BoolVar(&all, "all", false, "print every attribute without merging")
	return cmd
}

func headerError(err error) error {
	return &ExitError{Code: exitUsage, Err: issue.NewErrorContext().
		WithOperation("parse header").
		WithIssue(issue.HeaderSyntaxId).
		Wrap(err).
		Build()}
}
