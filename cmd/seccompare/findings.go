package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/ingest"
)

func findingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "findings",
		Aliases: []string{"f"},
		Short:   "Load and inspect model findings",
	}

	// seccompare findings ingest <session> --a 'out/a/**/*.json' --b out/b.yaml
	var (
		patternsA, patternsB []string
		modelA, modelB       string
		appendRound          bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest <session-id>",
		Short: "Load findings files for both models into a session",
		Long: `Load findings from JSON or YAML files. Each file holds either a list
of findings or an object with a "findings" list. Patterns may use ** globs.

By default both result sets are replaced. With --append the files are
added as a new generation round after the existing findings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(patternsA) == 0 && len(patternsB) == 0 {
				return fmt.Errorf("nothing to ingest: pass --a and/or --b")
			}
			mode := ingest.ModeReplace
			if appendRound {
				mode = ingest.ModeAppend
			}

			sess, stats, err := app.Ingester.Ingest(cmd.Context(), args[0],
				ingest.Source{ModelID: modelA, Patterns: patternsA},
				ingest.Source{ModelID: modelB, Patterns: patternsB},
				mode)
			if err != nil {
				return err
			}
			if sess == nil {
				return sessionNotFound(args[0])
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), stats)
			}

			w := review(cmd.OutOrStdout())
			w.Header("INGESTED %d FILES", stats.Files)
			w.Item("Model A: %d findings", stats.FindingsA)
			w.Item("Model B: %d findings", stats.FindingsB)
			if stats.Generated > 0 {
				w.Item("Generated ids: %d", stats.Generated)
			}
			if orphans := sess.Orphans(); len(orphans) > 0 {
				w.Line()
				w.Println("%d validations no longer match a finding (policy: %s)", len(orphans), app.Sessions.OrphanPolicy())
			}
			return nil
		},
	}
	ingestCmd.Flags().StringSliceVar(&patternsA, "a", nil, "Model A findings files or globs")
	ingestCmd.Flags().StringSliceVar(&patternsB, "b", nil, "Model B findings files or globs")
	ingestCmd.Flags().StringVar(&modelA, "model-a", "", "Model A id to record on the session")
	ingestCmd.Flags().StringVar(&modelB, "model-b", "", "Model B id to record on the session")
	ingestCmd.Flags().BoolVar(&appendRound, "append", false, "Append as a new round instead of replacing")

	// seccompare findings show <session> <finding>
	showCmd := &cobra.Command{
		Use:   "show <session-id> <finding-id>",
		Short: "Show one finding and its validation status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f, side, ok := sess.FindFinding(args[1])
			if !ok {
				return fmt.Errorf("finding %s not in session %s", args[1], args[0])
			}
			v, ok := sess.Validation(f.ID)
			if !ok {
				v = domain.NewValidation(f.ID)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"side":       side,
					"finding":    f,
					"validation": v,
				})
			}
			review(cmd.OutOrStdout()).Finding(f, side, v)
			return nil
		},
	}

	cmd.AddCommand(ingestCmd, showCmd)
	return cmd
}
