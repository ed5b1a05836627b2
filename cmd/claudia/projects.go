package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage workspace projects",
	}
	cmd.AddCommand(
		newProjectsListCmd(),
		newProjectsCreateCmd(),
		newProjectsDeleteCmd(),
	)
	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspace projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			projects := c.ListProjectsOrMock(cmd.Context())
			if !c.IsOnline() {
				fmt.Fprintln(os.Stderr, "server unreachable, showing sample projects")
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

func newProjectsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := newClient().CreateProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Created project %s (%s)\n", project.ID, project.Name)
			return nil
		},
	}
}

func newProjectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workspace project and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted project %s\n", args[0])
			return nil
		},
	}
}
