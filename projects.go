package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/models"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and edit tracked Galxe spaces",
	}
	cmd.AddCommand(projectsListCmd(), projectsAddCmd(), projectsBulkCmd(), projectsRemoveCmd())
	return cmd
}

func projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}
			printProjects(cmd.OutOrStdout(), cfg.Projects)
			return nil
		},
	}
}

func projectsAddCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add <name> <alias>",
		Short: "Track a Galxe space",
		Long: `Track a Galxe space. The alias is the path segment of the space URL
(app.galxe.com/quest/<alias>).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			p := models.Project{Name: args[0], Alias: args[1], Category: models.Category(category)}
			if err := store.Update(func(c *config.Config) error { return c.AddProject(p) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) [%s]\n", p.Name, p.Alias, models.NormalizeCategory(category))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", string(models.CategoryCustom), "Project category: custom or trending")
	return cmd
}

func projectsBulkCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Add projects from a list, one per line",
		Long: `Add projects from a list with one project per line in the form
"alias", "name,alias" or "name,alias,category". Lines starting with # are
ignored; aliases already tracked are skipped. Reads stdin unless --file is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read project list: %w", err)
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			added := 0
			if err := store.Update(func(c *config.Config) error {
				added = c.AddBulk(string(data))
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d project(s)\n", added)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the list from a file instead of stdin")
	return cmd
}

func projectsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Stop tracking the project at the listed index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			var removed models.Project
			if err := store.Update(func(c *config.Config) error {
				removed, err = c.RemoveProject(index)
				return err
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", removed.DisplayName(), removed.Alias)
			return nil
		},
	}
}

func printProjects(w io.Writer, projects []models.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects tracked.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tALIAS\tCATEGORY")
	for i, p := range projects {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, p.DisplayName(), p.Alias, p.Category)
	}
	_ = tw.Flush()
}

// parseIndex converts the 1-based index shown by the list commands.
func parseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", config.ErrIndexOutOfRange, raw)
	}
	return n - 1, nil
}
