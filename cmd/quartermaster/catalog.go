package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the parts catalog",
	}
	cmd.AddCommand(newCatalogItemsCommand(a), newCatalogVendorsCommand(a), newCatalogComponentsCommand(a))
	return cmd
}

func newCatalogItemsCommand(a *app) *cobra.Command {
	var component string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List catalog items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			items := cat.Items()
			if component != "" {
				items = cat.Search(component, nil)
			}

			if a.jsonOutput {
				return printJSON(map[string]any{"items": items, "count": len(items)})
			}

			var doc strings.Builder
			doc.WriteString("# Catalog Items\n\n")
			doc.WriteString("| ID | Component | Vendor | Price | Lead (days) | Reliability |\n")
			doc.WriteString("|----|-----------|--------|-------|-------------|-------------|\n")
			for _, item := range items {
				doc.WriteString(fmt.Sprintf("| %s | %s | %s | $%s | %d | %.3f |\n",
					item.ID, item.Component, item.Vendor, formatPrice(item.Price),
					item.LeadTimeDays, item.Reliability))
			}
			doc.WriteString(fmt.Sprintf("\n%d items\n", len(items)))
			printMarkdown(doc.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "only items of this component type")
	return cmd
}

func newCatalogVendorsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List vendors and their coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			details := cat.VendorDetails()

			if a.jsonOutput {
				return printJSON(map[string]any{"vendors": cat.Vendors(), "details": details})
			}

			var doc strings.Builder
			doc.WriteString("# Vendors\n\n")
			for _, vendor := range cat.Vendors() {
				detail := details[vendor]
				doc.WriteString(fmt.Sprintf("- **%s**: %d items (%s)\n",
					vendor, detail.ItemCount, strings.Join(detail.Components, ", ")))
			}
			printMarkdown(doc.String())
			return nil
		},
	}
}

func newCatalogComponentsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List component types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			details := cat.ComponentDetails()

			if a.jsonOutput {
				return printJSON(map[string]any{"components": cat.Components(), "details": details})
			}

			var doc strings.Builder
			doc.WriteString("# Components\n\n")
			names := make([]string, 0, len(details))
			for name := range details {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				detail := details[name]
				doc.WriteString(fmt.Sprintf("- **%s**: %d items, $%s to $%s, vendors %s\n",
					name, detail.Count,
					formatPrice(detail.PriceRange[0]), formatPrice(detail.PriceRange[1]),
					strings.Join(detail.Vendors, ", ")))
			}
			printMarkdown(doc.String())
			return nil
		},
	}
}
