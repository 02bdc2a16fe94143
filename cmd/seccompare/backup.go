package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/seccompare/internal/backup"
	"github.com/joss/seccompare/internal/config"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive and restore the whole session store",
	}

	// seccompare backup create [-o file] [-d description]
	var output, description string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Write every session to a .tar.gz archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				dir := config.GetPaths().Exports
				if err := config.EnsureDir(dir); err != nil {
					return err
				}
				output = filepath.Join(dir, fmt.Sprintf("seccompare-%s.tar.gz", time.Now().Format("20060102-150405")))
			}
			meta, err := backup.NewManager(app.Store).Create(cmd.Context(), output, description)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), meta)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d sessions (%d validations) to %s\n", meta.Sessions, meta.Validations, output)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default ~/.seccompare/exports/seccompare-<time>.tar.gz)")
	createCmd.Flags().StringVarP(&description, "description", "d", "", "Description stored in the archive")

	// seccompare backup restore <file> [--merge]
	var merge bool
	restoreCmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore sessions from an archive",
		Long: `Restore sessions from an archive, keeping their ids. Without --merge
every session currently in the store is removed first. With --merge
existing sessions win over archived copies with the same id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := backup.NewManager(app.Store).Restore(cmd.Context(), args[0], merge)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d sessions (skipped %d, removed %d)\n", result.Restored, result.Skipped, result.Removed)
			return nil
		},
	}
	restoreCmd.Flags().BoolVar(&merge, "merge", false, "Keep existing sessions")

	// seccompare backup list <file>
	listCmd := &cobra.Command{
		Use:   "list <file>",
		Short: "Show an archive's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := backup.NewManager(app.Store).List(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), meta)
			}
			w := review(cmd.OutOrStdout())
			w.Header("BACKUP %s", filepath.Base(args[0]))
			w.Item("Created:      %s", meta.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if meta.Description != "" {
				w.Item("Description:  %s", meta.Description)
			}
			w.Item("Sessions:     %d", meta.Sessions)
			w.Item("Validations:  %d", meta.Validations)
			return nil
		},
	}

	cmd.AddCommand(createCmd, restoreCmd, listCmd)
	return cmd
}
