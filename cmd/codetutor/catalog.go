package main

import (
	"fmt"
	"strings"

	"github.com/ashureev/codeedge/internal/prompts"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [category]",
	Short: "List prompt catalog categories, or the concepts of one category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		catalog, err := prompts.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprintln(out, "Structured categories:")
			for _, c := range catalog.Categories() {
				fmt.Fprintf(out, "  %s (%d concepts)\n", c, len(catalog.Concepts(c)))
			}
			fmt.Fprintln(out, "Advanced categories:")
			fmt.Fprintf(out, "  %s\n", strings.Join(catalog.AdvancedCategories(), ", "))
			fmt.Fprintln(out, "Portfolio agents:")
			fmt.Fprintf(out, "  %s\n", strings.Join(catalog.AgentNames(), ", "))
			return nil
		}

		concepts := catalog.Concepts(args[0])
		if len(concepts) == 0 {
			return fmt.Errorf("%w: %q", prompts.ErrUnknownCategory, args[0])
		}
		for _, c := range concepts {
			fmt.Fprintln(out, c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringP("file", "f", "", "Catalog YAML file (default: embedded catalog)")
}
