package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brewer-michael/claudia-web/pkg/client"
)

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <project-id> <path>",
		Short: "Print a project file to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := newClient().ReadFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		},
	}
}

func newWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <project-id> <path>",
		Short: "Write a project file from stdin or --file",
		Args:  cobra.ExactArgs(2),
		RunE:  runWrite,
	}
	cmd.Flags().String("file", "", "Read content from this local file instead of stdin")
	return cmd
}

func runWrite(cmd *cobra.Command, args []string) error {
	source, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("invalid file flag: %w", err)
	}

	var content []byte
	if source != "" {
		content, err = os.ReadFile(source)
	} else {
		content, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	if err := newClient().WriteFile(cmd.Context(), args[0], args[1], string(content)); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", args[1], len(content))
	return nil
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <project-id> <path>",
		Short: "Delete a project file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().DeleteFile(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[1])
			return nil
		},
	}
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <project-id> <command...>",
		Short: "Run a shell command in the project directory",
		Long: `Runs the command through the server's shell inside the project
directory and prints its combined output. The command's exit code
becomes this process's exit code.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().Execute(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Print(result.Output)
			if result.ExitCode != 0 {
				os.Exit(result.ExitCode)
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream workspace change events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			events, _ := client.NewSSEClient(serverURL, nil).Subscribe(ctx)
			fmt.Fprintln(os.Stderr, "watching for changes, Ctrl+C to stop")

			for event := range events {
				kind := "file"
				if event.IsDir {
					kind = "dir"
				}
				ts := time.Unix(event.Timestamp, 0).Format("15:04:05")
				fmt.Printf("%s  %-6s %-4s %s\n", ts, event.Op, kind, event.Path)
			}
			return nil
		},
	}
}
