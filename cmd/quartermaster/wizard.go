package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"quartermaster/internal/planner"
	"quartermaster/internal/scoring"
	"quartermaster/pkg/types"
)

func newWizardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactively build a procurement request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}

			componentPrompt := promptui.Select{
				Label: "Component type",
				Items: cat.Components(),
			}
			_, component, err := componentPrompt.Run()
			if err != nil {
				return err
			}
			request := types.Request{Component: component}

			maxCost, err := promptOptionalFloat("Max cost in dollars (blank for no limit)")
			if err != nil {
				return err
			}
			request.MaxCost = maxCost

			latestDelivery, err := promptOptionalInt("Latest delivery in days (blank for no limit)")
			if err != nil {
				return err
			}
			request.LatestDeliveryDays = latestDelivery

			weightsPrompt := promptui.Select{
				Label: "Scoring weights",
				Items: []string{"default (price 0.4, lead_time 0.3, reliability 0.3)", "custom"},
			}
			choice, _, err := weightsPrompt.Run()
			if err != nil {
				return err
			}
			if choice == 1 {
				weights, err := promptWeights()
				if err != nil {
					return err
				}
				request.Weights = weights
			}

			actionPrompt := promptui.Select{
				Label: "What next",
				Items: []string{"Run the plan now", "Save the request to a file"},
			}
			action, _, err := actionPrompt.Run()
			if err != nil {
				return err
			}

			if action == 1 {
				return saveRequest(request)
			}

			result, err := a.runPlan(cmd.Context(), cat, request, planner.Options{})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(result)
			}
			var doc strings.Builder
			writeResultMarkdown(&doc, result)
			printMarkdown(doc.String())
			return nil
		},
	}
}

func promptOptionalFloat(label string) (*float64, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
			if err != nil || v <= 0 {
				return fmt.Errorf("enter a positive number or leave blank")
			}
			return nil
		},
	}
	raw, err := prompt.Run()
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func promptOptionalInt(label string) (*int, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return nil
			}
			v, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil || v <= 0 {
				return fmt.Errorf("enter a positive whole number or leave blank")
			}
			return nil
		},
	}
	raw, err := prompt.Run()
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// promptWeights collects the three scoring weights and validates them as a
// set so the wizard rejects what the planner would reject.
func promptWeights() (map[string]float64, error) {
	weights := make(map[string]float64, 3)
	for _, key := range []string{scoring.WeightPrice, scoring.WeightLeadTime, scoring.WeightReliability} {
		prompt := promptui.Prompt{
			Label: fmt.Sprintf("Weight for %s (0 to 1)", key),
			Validate: func(input string) error {
				v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
				if err != nil || v < 0 || v > 1 {
					return fmt.Errorf("enter a number between 0 and 1")
				}
				return nil
			},
		}
		raw, err := prompt.Run()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, err
		}
		weights[key] = v
	}
	if err := scoring.Validate(weights); err != nil {
		return nil, err
	}
	return weights, nil
}

func saveRequest(request types.Request) error {
	prompt := promptui.Prompt{
		Label:   "File name",
		Default: "request.json",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("enter a file name")
			}
			return nil
		},
	}
	path, err := prompt.Run()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Println(green("Wrote"), path)
	return nil
}
