package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brewer-michael/claudia-web/pkg/projectstore"
)

func newImportCmd(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Copy a directory tree into the local project store",
		Long: `Creates a project in the local store and ingests every regular
file under the directory. Dependency and VCS directories (.git,
node_modules and friends) are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := cmd.Flags().GetString("name")
			if err != nil {
				return fmt.Errorf("invalid name flag: %w", err)
			}

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(dir)
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			project, err := store.CreateProject(cmd.Context(), name)
			if err != nil {
				return err
			}

			result, err := projectstore.Ingest(cmd.Context(), store, project.ID, dir, projectstore.IngestOptions{})
			if err != nil {
				return err
			}

			fmt.Printf("Imported %s as project %s\n", dir, project.ID)
			fmt.Printf("Stored %d files, skipped %d\n", result.Stored, result.Skipped)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Project name (defaults to the directory name)")
	return cmd
}

func newStoreCmd(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Work with locally stored projects",
	}
	cmd.AddCommand(
		newStoreListCmd(cfg),
		newStoreShowCmd(cfg),
		newStoreDeleteCmd(cfg),
		newStoreExportCmd(cfg),
		newStoreSessionCmd(cfg),
	)
	return cmd
}

func newStoreListCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally stored projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			projects, err := store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("no stored projects")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST SESSION")
			for _, p := range projects {
				last := "-"
				if p.MostRecentSession != nil {
					last = p.MostRecentSession.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.CreatedAt.Format("2006-01-02"), last)
			}
			return w.Flush()
		},
	}
}

func newStoreShowCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored project and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			project, err := store.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Project: %s (%s)\n", project.Name, project.ID)
			fmt.Printf("Created: %s\n", project.CreatedAt.Format("2006-01-02 15:04"))
			if project.MostRecentSession != nil {
				fmt.Printf("Last session: %s\n", project.MostRecentSession.Format("2006-01-02 15:04"))
			}
			fmt.Printf("Files: %d\n\n", len(project.Files))

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tKIND\tSIZE")
			for _, f := range project.Files {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.Path, f.Kind, formatSize(f.Size))
			}
			return w.Flush()
		},
	}
}

func newStoreDeleteCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored project with its files and sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted stored project %s\n", args[0])
			return nil
		},
	}
}

func newStoreExportCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <dir>",
		Short: "Write a stored project's files out to a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			project, err := store.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			target, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			for _, f := range project.Files {
				dest := filepath.Join(target, filepath.FromSlash(f.Path))
				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(dest, f.Content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", f.Path, err)
				}
			}

			fmt.Printf("Exported %d files to %s\n", len(project.Files), target)
			return nil
		},
	}
}

func newStoreSessionCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "record-session <id>",
		Short: "Record a session start against a stored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := store.RecordSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Recorded session %s at %s\n",
				session.ID, session.StartedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}
