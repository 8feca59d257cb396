package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

func TestSettingsForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:             "k",
		Model:              "base-model",
		Temperature:        0.2,
		MaxCompletionToken: 100,
		TechModel:          "tech-model",
		TechTemperature:    0.7,
		TriageTemperature:  -1,
		BillingTemperature: -1,
	}

	tech := cfg.SettingsFor(contractx.AgentTypeTech)
	if tech.Model != "tech-model" || tech.Temperature != 0.7 {
		t.Fatalf("unexpected tech config: model=%s temp=%v", tech.Model, tech.Temperature)
	}
	billing := cfg.SettingsFor(contractx.AgentTypeBilling)
	if billing.Model != "base-model" || billing.Temperature != 0.2 {
		t.Fatalf("unexpected billing config: model=%s temp=%v", billing.Model, billing.Temperature)
	}
	if billing.MaxTokens != 100 {
		t.Fatalf("unexpected max tokens: %d", billing.MaxTokens)
	}

	models := cfg.Models()
	if len(models) != 2 || models[0] != "base-model" || models[1] != "tech-model" {
		t.Fatalf("unexpected models: %#v", models)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{
		BaseURL:  "https://example.test/api/v1/",
		APIKey:   "k",
		Model:    "m",
		SiteName: "Support Router",
	}

	ep := cfg.Endpoint()
	if ep.APIKey != "k" || ep.SiteName != "Support Router" {
		t.Fatalf("unexpected endpoint: %+v", ep)
	}
}
