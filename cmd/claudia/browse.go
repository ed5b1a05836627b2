package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/brewer-michael/claudia-web/pkg/explorer"
	"github.com/brewer-michael/claudia-web/pkg/models"
)

var (
	// Styles
	dirStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <project-id>",
		Short: "Show a project's directory tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runTree,
	}
	cmd.Flags().Int("depth", 2, "How many directory levels to load")
	return cmd
}

func runTree(cmd *cobra.Command, args []string) error {
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return fmt.Errorf("invalid depth flag: %w", err)
	}

	ex := explorer.New(explorer.Config{
		Source:    newClient(),
		ProjectID: args[0],
	})
	if err := ex.LoadRoot(cmd.Context()); err != nil {
		return err
	}
	if err := expandToDepth(cmd.Context(), ex, depth); err != nil {
		return err
	}

	printTree(ex.Tree().Roots(), 0)
	fmt.Println(sizeStyle.Render(fmt.Sprintf("%d entries loaded", ex.Tree().Count())))
	return nil
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <project-id> <query>",
		Short: "Search loaded file and directory names",
		Long: `Search matches names in the loaded part of the tree by
case-insensitive substring. Directories beyond --depth are not loaded
and stay invisible to the search.`,
		Args: cobra.ExactArgs(2),
		RunE: runSearch,
	}
	cmd.Flags().Int("depth", 3, "How many directory levels to load before searching")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return fmt.Errorf("invalid depth flag: %w", err)
	}

	ex := explorer.New(explorer.Config{
		Source:    newClient(),
		ProjectID: args[0],
	})
	if err := ex.LoadRoot(cmd.Context()); err != nil {
		return err
	}
	if err := expandToDepth(cmd.Context(), ex, depth); err != nil {
		return err
	}

	ex.SetSearchQuery(args[1])
	matches := ex.SearchResults()
	if len(matches) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for _, m := range matches {
		if m.Node.IsDirectory {
			fmt.Println(dirStyle.Render(m.DisplayPath + "/"))
		} else {
			fmt.Println(matchStyle.Render(m.DisplayPath))
		}
	}
	fmt.Println(sizeStyle.Render(fmt.Sprintf("%d matches", len(matches))))
	return nil
}

// expandToDepth materializes the tree breadth-first until depth levels
// are loaded. Depth 1 is the root listing itself.
func expandToDepth(ctx context.Context, ex *explorer.Explorer, depth int) error {
	for level := 1; level < depth; level++ {
		var toOpen []string
		for _, root := range ex.Tree().Roots() {
			collectAtLevel(root, 1, level, &toOpen)
		}
		if len(toOpen) == 0 {
			return nil
		}
		for _, path := range toOpen {
			if err := ex.Toggle(ctx, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func collectAtLevel(node *models.DirectoryEntry, nodeLevel, want int, out *[]string) {
	if node.IsDirectory && nodeLevel == want && !node.HasChildren() {
		*out = append(*out, node.Path)
		return
	}
	for _, child := range node.Children {
		collectAtLevel(child, nodeLevel+1, want, out)
	}
}

func printTree(entries []*models.DirectoryEntry, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, e := range entries {
		if e.IsDirectory {
			fmt.Println(prefix + dirStyle.Render(e.Name+"/"))
			printTree(e.Children, indent+1)
			continue
		}
		line := prefix + fileStyle.Render(e.Name)
		if e.Size > 0 {
			line += " " + sizeStyle.Render(formatSize(e.Size))
		}
		fmt.Println(line)
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
