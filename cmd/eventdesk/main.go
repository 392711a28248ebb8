package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventdesk/internal/backend"
	"github.com/alfredjeanlab/eventdesk/internal/ui"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool

	// openStore connects to the configured backend. Tests replace it.
	openStore = backend.Open
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eventdesk <command>",
		Short:         "Admin panel and CLI for the events table",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || jsonOutput || !ui.ShouldUseColor() {
				ui.ForceNoColor()
			}
		},
	}

	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log backend operations to stderr")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddGroup(
		&cobra.Group{ID: "events", Title: "Events:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	root.SetHelpFunc(colorizedHelpFunc())

	// Events
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newWatchCmd())

	// System
	root.AddCommand(newServeCmd())

	return root
}

// cliLogger logs warnings and errors to stderr, or everything with --verbose.
func cliLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln(ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
