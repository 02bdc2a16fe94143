// Package main provides the seccompare CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/seccompare/internal/logging"
)

var (
	version = "0.1.0"
	pretty  = true
	asJSON  bool
	cfgFile string
	app     *App
)

func main() {
	rootCmd := newRootCmd()

	err := logging.NewRecoveryHandler("cli").WrapError(rootCmd.Execute)
	if app != nil {
		app.Close()
	}
	if err != nil {
		exitOnError(err)
	}
}

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seccompare",
		Short: "Compare and validate security findings from two models",
		Long: `seccompare: security review sessions for model comparison.

A session holds a prompt template snapshot, the findings produced by
two models, and your validation of each finding (status plus accuracy,
completeness, relevance and actionability scores from 1 to 5).

Use 'seccompare tui' for the interactive validation editor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pretty") {
				pretty = term.IsTerminal(int(os.Stdout.Fd()))
			}
			color.NoColor = !pretty
			cmd.SetContext(logging.StartOperation(cmd.Context(), cmd.CommandPath()))

			var err error
			app, err = NewApp(cmd)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
				app = nil
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&pretty, "pretty", true, "Pretty print output (default: when stdout is a terminal)")
	flags.BoolVar(&asJSON, "json", false, "Output as JSON")
	flags.StringVar(&cfgFile, "config", "", "Config file (default ~/.seccompare/config.yaml)")
	flags.String("store", "", "Store backend: memory, sqlite or badger")
	flags.String("store-path", "", "Store file (sqlite) or directory (badger)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddGroup(
		&cobra.Group{ID: "review", Title: "Review:"},
		&cobra.Group{ID: "infra", Title: "Infrastructure:"},
	)

	sess := sessionCmd()
	sess.GroupID = "review"
	rootCmd.AddCommand(sess)

	findings := findingsCmd()
	findings.GroupID = "review"
	rootCmd.AddCommand(findings)

	validate := validateCmd()
	validate.GroupID = "review"
	rootCmd.AddCommand(validate)

	ui := tuiCmd()
	ui.GroupID = "review"
	rootCmd.AddCommand(ui)

	bak := backupCmd()
	bak.GroupID = "infra"
	rootCmd.AddCommand(bak)

	serve := serveMetricsCmd()
	serve.GroupID = "infra"
	rootCmd.AddCommand(serve)

	// Ungrouped
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show seccompare version",
		// No store needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "seccompare version %s\n", version)
		},
	}
}
