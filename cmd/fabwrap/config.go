// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zhanleewo/fuse/internal/config"
	"github.com/zhanleewo/fuse/internal/issue"
)

// newConfigCommand creates the `fabwrap config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fabwrap configuration",
		Long: `Manage fabwrap configuration.

Configuration is read from config.cue in the user config directory
(~/.config/fabwrap on Linux) or the working directory. Every key can be
overridden with a FABWRAP_ environment variable, e.g. FABWRAP_OVERWRITE_MODE.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(app.Config().Config))
			return nil
		},
	})

	return cfgCmd
}

func (app *App) showConfig(cmd *cobra.Command) error {
	// setup falls back to defaults on a broken file; show reports it instead.
	loaded, err := config.LoadWithPath(cmd.Context(), config.LoadOptions{ConfigFilePath: app.cfgFile})
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render(""); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	source := SubtitleStyle.Render("(using defaults)")
	if loaded.Path != "" {
		source = loaded.Path
	}
	fmt.Fprintf(app.stdout, "%s: %s\n\n", KeyStyle.Render("Config file"), source)

	rows := []struct{ key, value string }{
		{"overwrite_mode", loaded.OverwriteMode},
		{"versions_file", loaded.VersionsFile},
		{"cache_dir", loaded.CacheDir},
		{"stream.buffer_size", strconv.Itoa(loaded.Stream.BufferSize)},
		{"stream.propagate_errors", strconv.FormatBool(loaded.Stream.PropagateErrors)},
		{"resolver.cache_size", strconv.Itoa(loaded.Resolver.CacheSize)},
		{"log.level", loaded.Log.Level.String()},
	}
	for _, row := range rows {
		value := SuccessStyle.Render(row.value)
		if row.value == "" {
			value = SubtitleStyle.Render("(not set)")
		}
		fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render(row.key), value)
	}
	return nil
}
