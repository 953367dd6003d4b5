package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"quartermaster/internal/catalog"
	"quartermaster/internal/negotiation"
	"quartermaster/internal/planner"
	"quartermaster/pkg/types"
)

func newNegotiateCommand(a *app) *cobra.Command {
	var (
		chat     bool
		provider string
		apiKey   string
	)

	cmd := &cobra.Command{
		Use:   "negotiate <request.json>",
		Short: "Plan a request and run the procurement review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := loadRequest(args[0])
			if err != nil {
				return err
			}
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			result, err := a.runPlan(cmd.Context(), cat, request, planner.Options{
				Provider: provider,
				APIKey:   apiKey,
			})
			if err != nil {
				return err
			}

			review := negotiation.Review(result.Selected.Item, result.Request)

			if a.jsonOutput && !chat {
				return printJSON(map[string]any{"selected": result.Selected, "review": review})
			}

			var doc strings.Builder
			doc.WriteString("# Negotiation\n\n")
			doc.WriteString("## Selected\n\n")
			selected := result.Selected
			doc.WriteString(formatSelectedLine(selected))
			writeReviewMarkdown(&doc, &review)
			printMarkdown(doc.String())

			if !chat {
				return nil
			}
			return a.vendorChat(cmd.Context(), cat, selected.Item, request, provider, apiKey)
		},
	}

	cmd.Flags().BoolVar(&chat, "chat", false, "open an interactive chat with the vendor agent")
	cmd.Flags().StringVar(&provider, "llm-provider", "mock", "agent provider (mock or openai)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the openai provider")
	return cmd
}

// vendorChat opens a REPL where the user plays the buyer against the vendor
// sales agent for the selected item.
func (a *app) vendorChat(ctx context.Context, cat *catalog.Catalog, item types.Item, request types.Request, provider, apiKey string) error {
	client, err := a.clients(provider, apiKey)
	if err != nil {
		return err
	}
	index, err := catalog.NewIndex(ctx, cat)
	if err != nil {
		return err
	}
	agent := negotiation.NewVendorAgent(client, cat, index, a.logger)

	opening, err := agent.Open(ctx, item, request)
	if err != nil {
		return err
	}

	return a.chatLoop(ctx, negotiation.RoleBuyer, []types.ChatMessage{opening},
		func(ctx context.Context, message string, conversation []types.ChatMessage) (types.ChatMessage, error) {
			return agent.Respond(ctx, message, conversation, item, request)
		})
}
