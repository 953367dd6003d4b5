package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quartermaster/internal/catalog"
)

func newSearchCommand(a *app) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			index, err := catalog.NewIndex(cmd.Context(), cat)
			if err != nil {
				return err
			}
			items, err := index.Search(cmd.Context(), query, topK)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(map[string]any{"query": query, "results": items, "count": len(items)})
			}

			var doc strings.Builder
			doc.WriteString(fmt.Sprintf("# Search: %s\n\n", query))
			if len(items) == 0 {
				doc.WriteString("No matching items.\n")
			} else {
				doc.WriteString("| ID | Component | Vendor | Price | Lead (days) | Reliability |\n")
				doc.WriteString("|----|-----------|--------|-------|-------------|-------------|\n")
				for _, item := range items {
					doc.WriteString(fmt.Sprintf("| %s | %s | %s | $%s | %d | %.3f |\n",
						item.ID, item.Component, item.Vendor, formatPrice(item.Price),
						item.LeadTimeDays, item.Reliability))
				}
			}
			printMarkdown(doc.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 5, "number of results to return")
	return cmd
}
