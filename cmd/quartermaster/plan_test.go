package main

import (
	"context"
	"strings"
	"testing"

	"quartermaster/internal/catalog"
	"quartermaster/internal/config"
	"quartermaster/internal/constraints"
	"quartermaster/internal/errors"
	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
	"quartermaster/internal/planner"
	"quartermaster/pkg/types"
)

func testApp() *app {
	return &app{
		config:  config.Default(),
		logger:  logging.Nop(),
		clients: llm.NewFactory(llm.Settings{}),
	}
}

func planFixture() *catalog.Catalog {
	return catalog.New([]types.Item{
		{ID: "SP-100", Component: "solar_panel", Vendor: "Helios Dynamics", Price: 4800, LeadTimeDays: 21, Reliability: 0.985},
		{ID: "SP-200", Component: "solar_panel", Vendor: "Astra Components", Price: 5200, LeadTimeDays: 14, Reliability: 0.975},
	})
}

func TestReconcileConstraintsRegeneratesJustification(t *testing.T) {
	a := testApp()
	p := a.newPlanner(planFixture())

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, planner.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Selected.ID != "SP-100" {
		t.Fatalf("selected = %s, want SP-100", result.Selected.ID)
	}

	policy := &constraints.Policy{ExcludedVendors: []string{"Helios Dynamics"}}
	if err := reconcileConstraints(context.Background(), p, result, policy, planner.Options{}); err != nil {
		t.Fatal(err)
	}

	if result.Selected.ID != "SP-200" {
		t.Fatalf("selected after policy = %s, want SP-200", result.Selected.ID)
	}
	if !strings.Contains(result.Justification, "SP-200") {
		t.Errorf("justification still describes the displaced selection: %q", result.Justification)
	}
}

func TestReconcileConstraintsKeepsJustificationWhenSelectionStands(t *testing.T) {
	a := testApp()
	p := a.newPlanner(planFixture())

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, planner.Options{})
	if err != nil {
		t.Fatal(err)
	}
	before := result.Justification

	policy := &constraints.Policy{PreferredVendors: []string{"Helios Dynamics"}}
	if err := reconcileConstraints(context.Background(), p, result, policy, planner.Options{}); err != nil {
		t.Fatal(err)
	}

	if result.Selected.ID != "SP-100" {
		t.Fatalf("selected = %s, want SP-100", result.Selected.ID)
	}
	if result.Justification != before {
		t.Errorf("justification changed although the selection stood:\nbefore %q\nafter  %q", before, result.Justification)
	}
}

func TestReconcileConstraintsNoSurvivors(t *testing.T) {
	a := testApp()
	p := a.newPlanner(planFixture())

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, planner.Options{})
	if err != nil {
		t.Fatal(err)
	}

	policy := &constraints.Policy{ExcludedVendors: []string{"Helios Dynamics", "Astra Components"}}
	err = reconcileConstraints(context.Background(), p, result, policy, planner.Options{})
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}
