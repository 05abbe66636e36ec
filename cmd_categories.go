package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
	"github.com/Conceptual-Machines/magda-midigen/internal/models"
)

// formatCategoriesTable lists each category directory with its prompt
func formatCategoriesTable(out io.Writer, categories []models.Category) {
	fmt.Fprintf(out, "%-28s %s\n", "DIRECTORY", "PROMPT")
	for _, c := range categories {
		fmt.Fprintf(out, "%-28s %s\n", c.Dir(), c.Prompt())
	}
	fmt.Fprintf(out, "%d categories\n", len(categories))
}

func newCategoriesCmd(load func() (*config.Config, error)) *cobra.Command {
	var genres, styles string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List genre × style categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("genres") {
				cfg.Genres = config.SplitList(genres)
			}
			if cmd.Flags().Changed("styles") {
				cfg.Styles = config.SplitList(styles)
			}

			formatCategoriesTable(cmd.OutOrStdout(), models.Categories(cfg.Genres, cfg.Styles))
			return nil
		},
	}

	cmd.Flags().StringVar(&genres, "genres", "", "comma separated genres")
	cmd.Flags().StringVar(&styles, "styles", "", "comma separated styles")

	return cmd
}
