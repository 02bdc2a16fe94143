package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/seccompare/internal/domain"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Aliases: []string{"v"},
		Short:   "Record and inspect finding validations",
	}

	// seccompare validate set <session> <finding> --status confirmed --accuracy 4
	var (
		status string
		notes  string
		by     string
		scores = map[domain.Dimension]*int{}
	)
	setCmd := &cobra.Command{
		Use:   "set <session-id> <finding-id>",
		Short: "Create or update the validation of a finding",
		Long: `Set the status, scores or notes of a finding's validation. Fields not
given keep their current value; a new validation starts at 3 on every
dimension. Setting the status to pending removes the validation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessionID, findingID := args[0], args[1]

			sess, err := requireSession(ctx, sessionID)
			if err != nil {
				return err
			}
			if _, _, ok := sess.FindFinding(findingID); !ok {
				return fmt.Errorf("finding %s not in session %s", findingID, sessionID)
			}

			v, ok := sess.Validation(findingID)
			if !ok {
				v = domain.NewValidation(findingID)
			}
			if cmd.Flags().Changed("status") {
				v.Status = domain.Status(status)
			}
			for _, d := range domain.Dimensions() {
				if cmd.Flags().Changed(string(d)) {
					v.SetScore(d, *scores[d])
				}
			}
			if cmd.Flags().Changed("notes") {
				v.Notes = notes
			}
			if by != "" {
				v.ValidatedBy = by
			}
			// Re-stamped on save.
			if !v.Status.IsPending() {
				v.ValidatedAt = time.Time{}
			}
			if err := domain.CheckValidation(v); err != nil {
				return err
			}

			updated, err := saveValidation(ctx, sessionID, v)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), updated.Progress)
			}
			if v.Status.IsPending() {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared validation of %s\n", findingID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Validated %s as %s\n", findingID, v.Status)
			}
			p := domain.ComputeProgressView(updated)
			fmt.Fprintf(cmd.OutOrStdout(), "Progress: %d/%d (%.0f%%)\n", p.ValidatedFindings, p.TotalFindings, p.PercentComplete)
			return nil
		},
	}
	setCmd.Flags().StringVarP(&status, "status", "s", "", "pending, confirmed, false-positive or needs-review")
	for _, d := range domain.Dimensions() {
		scores[d] = setCmd.Flags().Int(string(d), domain.DefaultRating, fmt.Sprintf("%s score 1-5", d))
	}
	setCmd.Flags().StringVarP(&notes, "notes", "n", "", "Analyst notes")
	setCmd.Flags().StringVar(&by, "by", "", "Analyst name (default from config validation.validated_by)")

	// seccompare validate get <session> <finding>
	getCmd := &cobra.Command{
		Use:   "get <session-id> <finding-id>",
		Short: "Show the validation of a finding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			v, ok := app.Validations.GetValidation(cmd.Context(), args[0], args[1])
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is pending\n", args[1])
				return nil
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), v)
			}
			review(cmd.OutOrStdout()).Validation(*v)
			return nil
		},
	}

	// seccompare validate list <session>
	listCmd := &cobra.Command{
		Use:   "list <session-id>",
		Short: "List a session's validations in the order they were recorded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			vs := app.Validations.GetAllValidations(cmd.Context(), args[0])
			if asJSON {
				return printJSON(cmd.OutOrStdout(), vs)
			}
			review(cmd.OutOrStdout()).Validations(vs)
			return nil
		},
	}

	// seccompare validate delete <session> <finding>
	deleteCmd := &cobra.Command{
		Use:   "delete <session-id> <finding-id>",
		Short: "Remove a finding's validation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.Validations.DeleteValidation(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if sess == nil {
				return sessionNotFound(args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed validation of %s\n", args[1])
			return nil
		},
	}

	// seccompare validate stats <session>
	statsCmd := &cobra.Command{
		Use:   "stats <session-id>",
		Short: "Show counts per status and mean scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			st := app.Validations.GetValidationStats(cmd.Context(), args[0])
			if asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			review(cmd.OutOrStdout()).Stats(st)
			return nil
		},
	}

	// seccompare validate orphans <session>
	orphansCmd := &cobra.Command{
		Use:   "orphans <session-id>",
		Short: "List validations whose finding is no longer in the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			orphans := sess.Orphans()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), orphans)
			}
			review(cmd.OutOrStdout()).Orphans(orphans)
			return nil
		},
	}

	// seccompare validate clear <session>
	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Remove every validation of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear validations without --yes")
			}
			sess, err := app.Validations.ClearAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if sess == nil {
				return sessionNotFound(args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared all validations of %s\n", sess.Name)
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm")

	cmd.AddCommand(setCmd, getCmd, listCmd, deleteCmd, statsCmd, orphansCmd, clearCmd)
	return cmd
}
