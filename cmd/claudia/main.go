package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brewer-michael/claudia-web/pkg/client"
)

var version = "0.1.0"

// serverURL is the workspace server address, resolved from the config
// file and overridable with --server.
var serverURL string

func main() {
	cfg := loadConfig()

	rootCmd := &cobra.Command{
		Use:   "claudia",
		Short: "Workspace browser and project manager",
		Long:  "Browse a workspace served by the claudia server, manage projects, edit files, run commands, and keep offline project copies in a local store.",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", cfg.ServerURL, "Workspace server URL")

	rootCmd.AddCommand(
		newProjectsCmd(),
		newTreeCmd(),
		newSearchCmd(),
		newReadCmd(),
		newWriteCmd(),
		newRemoveCmd(),
		newExecCmd(),
		newWatchCmd(),
		newImportCmd(cfg),
		newStoreCmd(cfg),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(client.Config{BaseURL: serverURL})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("claudia version %s\n", version)
			fmt.Printf("Config: %s\n", configPath())
		},
	}
}
