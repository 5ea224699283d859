// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the fabwrap CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zhanleewo/fuse/internal/config"
	"github.com/zhanleewo/fuse/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App holds the state shared by all commands of one invocation.
	App struct {
		stdout io.Writer
		stderr io.Writer

		cfgFile string
		verbose bool
		cfg     *config.Loaded
	}

	// ExitError signals a non-zero exit code without calling os.Exit in
	// RunE handlers.
	ExitError struct {
		Code int
		Err  error
	}
)

// NewApp creates an App writing to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{stdout: stdout, stderr: stderr}
}

// Config returns the configuration loaded for the running command.
func (app *App) Config() *config.Loaded {
	if app.cfg == nil {
		return &config.Loaded{Config: config.DefaultConfig()}
	}
	return app.cfg
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "fabwrap",
		Short: "Turn plain JARs into OSGi bundles",
		Long: TitleStyle.Render("fabwrap") + SubtitleStyle.Render(" - turn plain JARs into OSGi bundles") + `

fabwrap computes Import-Package, Export-Package and Bundle-SymbolicName
headers for an archive, merges extra package imports into the result, and
streams the rewritten archive.

` + SubtitleStyle.Render("Examples:") + `
  fabwrap wrap app.jar -o app-bundle.jar
  fabwrap wrap app.jar -q 'Import-Package=com.acme.*' --extra-imports 'org.slf4j;version=1.7'
  fabwrap header 'org.slf4j;version=1.7,com.acme;foo=bar'
  fabwrap config show`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd.Context())
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	root.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/fabwrap/config.cue)")

	root.AddCommand(
		newWrapCommand(app),
		newHeaderCommand(app),
		newConfigCommand(app),
	)
	return root
}

// setup loads configuration and installs the logger as the slog default.
// A broken config file is reported and replaced by the defaults.
func (app *App) setup(ctx context.Context) error {
	loaded, err := config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: app.cfgFile})
	if err != nil {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, app.verbose))
		loaded = &config.Loaded{Config: config.DefaultConfig()}
	}
	app.cfg = loaded

	level := loaded.Log.Level.Slog()
	if app.verbose {
		level = slog.LevelDebug
	}
	logger := log.NewWithOptions(app.stderr, log.Options{
		Prefix: "fabwrap",
		Level:  log.Level(level),
	})
	slog.SetDefault(slog.New(logger))
	return nil
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	app := NewApp(os.Stdout, os.Stderr)
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		app.explain(err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay uses ActionableError.Format when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// explain prints the guide of the issue behind err in verbose mode.
func (app *App) explain(err error) {
	var ae *issue.ActionableError
	if !app.verbose || !errors.As(err, &ae) {
		return
	}
	details := ae.Details()
	if details == nil {
		return
	}
	rendered, renderErr := details.Render("")
	if renderErr != nil {
		slog.Debug("issue guide cannot be rendered", "issue", details.Id(), "error", renderErr)
		return
	}
	fmt.Fprint(app.stderr, rendered)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
