package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joss/seccompare/internal/config"
	"github.com/joss/seccompare/internal/ingest"
	"github.com/joss/seccompare/internal/render"
	"github.com/joss/seccompare/internal/session"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"s"},
		Short:   "Manage review sessions",
	}

	// seccompare session create <name>
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty review session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.Sessions.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), sess)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (%s)\n", sess.ID, sess.Name)
			return nil
		},
	}

	// seccompare session list
	var filter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := session.Filter(app.Sessions.List(cmd.Context()), filter)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), sessions)
			}
			if len(sessions) == 0 {
				render.NewWriter(cmd.OutOrStdout()).Empty("No sessions")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), render.New(pretty).Sessions(sessions))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on session name")

	// seccompare session show <id>
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session with its findings and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), sess)
			}
			review(cmd.OutOrStdout()).Session(sess)
			return nil
		},
	}

	// seccompare session rename <id> <name>
	renameCmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return updateSession(cmd, args[0], session.Patch{Name: &name})
		},
	}

	// seccompare session set-models <id> --a <model> --b <model>
	var modelA, modelB string
	modelsCmd := &cobra.Command{
		Use:   "set-models <id>",
		Short: "Record which models produced each result set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch session.Patch
			if cmd.Flags().Changed("a") {
				patch.ModelAID = &modelA
			}
			if cmd.Flags().Changed("b") {
				patch.ModelBID = &modelB
			}
			return updateSession(cmd, args[0], patch)
		},
	}
	modelsCmd.Flags().StringVar(&modelA, "a", "", "Model A id")
	modelsCmd.Flags().StringVar(&modelB, "b", "", "Model B id")

	// seccompare session set-template <id> <file>
	templateCmd := &cobra.Command{
		Use:   "set-template <id> <file>",
		Short: "Snapshot a YAML prompt template into a session",
		Long: `Load a prompt template from a YAML file and store a copy in the session.
Relative paths that do not exist are looked up in ~/.seccompare/templates.
Later edits to the file do not affect the session.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := ingest.LoadTemplate(templatePath(args[1]))
			if err != nil {
				return err
			}
			return updateSession(cmd, args[0], session.Patch{PromptTemplate: tmpl})
		},
	}

	// seccompare session delete <id>
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its validations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Sessions.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}

	// seccompare session export <id> [-o file]
	var output string
	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, ok := app.Sessions.Export(cmd.Context(), args[0])
			if !ok {
				return sessionNotFound(args[0])
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], output)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	// seccompare session import <file|->
	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported session under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sess, err := app.Sessions.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), sess)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported session %s (%s)\n", sess.ID, sess.Name)
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd, showCmd, renameCmd, modelsCmd, templateCmd, deleteCmd, exportCmd, importCmd)
	return cmd
}

// updateSession applies p and prints the result.
func updateSession(cmd *cobra.Command, id string, p session.Patch) error {
	sess, err := app.Sessions.Update(cmd.Context(), id, p)
	if err != nil {
		return err
	}
	if sess == nil {
		return sessionNotFound(id)
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), sess)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated session %s\n", sess.ID)
	return nil
}

// templatePath falls back to the templates directory for bare names.
func templatePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(config.GetPaths().Templates, path)
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
