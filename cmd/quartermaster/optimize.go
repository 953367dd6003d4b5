package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quartermaster/internal/negotiation"
	"quartermaster/internal/planner"
	"quartermaster/pkg/types"
)

func newOptimizeCommand(a *app) *cobra.Command {
	var (
		chat     bool
		provider string
		apiKey   string
	)

	cmd := &cobra.Command{
		Use:   "optimize <request.json>",
		Short: "Cost analysis, savings estimate, and optimization roundtable",
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
			item := result.Selected.Item

			client, err := a.clients(provider, apiKey)
			if err != nil {
				return err
			}
			agent := negotiation.NewCostAgent(client, cat, a.logger)
			analysis, err := agent.Analyze(cmd.Context(), item, request)
			if err != nil {
				return err
			}
			roundtable := negotiation.NewRoundtable().Run(item, request)

			if a.jsonOutput && !chat {
				return printJSON(map[string]any{
					"selected":             result.Selected,
					"analysis":             analysis.Analysis,
					"estimated_savings":    analysis.EstimatedSavings,
					"cheaper_alternatives": agent.CheaperAlternatives(item),
					"roundtable":           roundtable,
				})
			}

			var doc strings.Builder
			doc.WriteString("# Cost Optimization\n\n")
			doc.WriteString("## Selected\n\n")
			doc.WriteString(formatSelectedLine(result.Selected))
			doc.WriteString("## Analysis\n\n")
			doc.WriteString(analysis.Analysis)
			doc.WriteString("\n\n")
			writeSavingsMarkdown(&doc, analysis.EstimatedSavings)
			if alternatives := agent.CheaperAlternatives(item); len(alternatives) > 0 {
				doc.WriteString("## Cheaper Alternatives\n\n")
				for _, alt := range alternatives {
					doc.WriteString(fmt.Sprintf("- %s from %s at $%s (%d days, reliability %.3f)\n",
						alt.ID, alt.Vendor, formatPrice(alt.Price), alt.LeadTimeDays, alt.Reliability))
				}
				doc.WriteString("\n")
			}
			writeRoundtableMarkdown(&doc, roundtable)
			printMarkdown(doc.String())

			if !chat {
				return nil
			}
			return a.chatLoop(cmd.Context(), negotiation.RoleUser, analysis.Conversation,
				func(ctx context.Context, message string, conversation []types.ChatMessage) (types.ChatMessage, error) {
					return agent.Chat(ctx, message, conversation, item, request)
				})
		},
	}

	cmd.Flags().BoolVar(&chat, "chat", false, "open an interactive chat with the cost agent")
	cmd.Flags().StringVar(&provider, "llm-provider", "mock", "agent provider (mock or openai)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the openai provider")
	return cmd
}

func writeSavingsMarkdown(doc *strings.Builder, savings types.Savings) {
	doc.WriteString("## Estimated Savings\n\n")
	doc.WriteString(fmt.Sprintf("- current cost: $%s\n", formatPrice(savings.CurrentCost)))
	doc.WriteString(fmt.Sprintf("- vendor negotiation: $%s\n", formatPrice(savings.VendorNegotiationSavings)))
	doc.WriteString(fmt.Sprintf("- spec relaxation: $%s\n", formatPrice(savings.SpecRelaxationSavings)))
	doc.WriteString(fmt.Sprintf("- logistics: $%s\n", formatPrice(savings.LogisticsSavings)))
	doc.WriteString(fmt.Sprintf("- total potential: $%s\n", formatPrice(savings.TotalPotentialSavings)))
	doc.WriteString(fmt.Sprintf("- cost after optimization: $%s\n\n", formatPrice(savings.CostAfterOptimization)))
}

func writeRoundtableMarkdown(doc *strings.Builder, outcome *negotiation.RoundtableOutcome) {
	doc.WriteString("## Roundtable\n\n")
	for _, turn := range outcome.Discussion {
		doc.WriteString(fmt.Sprintf("**%s** (%s):\n\n%s\n\n", turn.Agent, turn.Role, turn.Message))
	}
}
