package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Support-Router/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	VerifyModel        bool          `envconfig:"VERIFY_MODEL" split_words:"true" default:"true"`

	TriageModel        string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	TechModel          string  `envconfig:"TECH_MODEL" split_words:"true"`
	BillingModel       string  `envconfig:"BILLING_MODEL" split_words:"true"`
	TriageTemperature  float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	TechTemperature    float32 `envconfig:"TECH_TEMPERATURE" split_words:"true" default:"-1"`
	BillingTemperature float32 `envconfig:"BILLING_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// Models lists the distinct model names in use across all agents.
func (c Config) Models() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, agent := range []contractx.AgentType{
		contractx.AgentTypeTriage,
		contractx.AgentTypeTech,
		contractx.AgentTypeBilling,
	} {
		name := c.SettingsFor(agent).Model
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func (c Config) Endpoint() openrouterx.Endpoint {
	return openrouterx.Endpoint{
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		Timeout:  c.Timeout,
		SiteURL:  c.SiteURL,
		SiteName: c.SiteName,
	}
}

// SettingsFor applies the agent's model and temperature overrides on top of
// the shared defaults. A negative override temperature means unset.
func (c Config) SettingsFor(agentType contractx.AgentType) openrouterx.ModelSettings {
	settings := openrouterx.ModelSettings{
		Model:       strings.TrimSpace(c.Model),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxCompletionToken,
	}

	override := func(name string, t float32) {
		if v := strings.TrimSpace(name); v != "" {
			settings.Model = v
		}
		if t >= 0 {
			settings.Temperature = t
		}
	}

	switch agentType {
	case contractx.AgentTypeTriage:
		override(c.TriageModel, c.TriageTemperature)
	case contractx.AgentTypeTech:
		override(c.TechModel, c.TechTemperature)
	case contractx.AgentTypeBilling:
		override(c.BillingModel, c.BillingTemperature)
	}
	return settings
}

// ChatModel builds the chat model the given agent runs on.
func (c Config) ChatModel(ctx context.Context, agentType contractx.AgentType) (model.ToolCallingChatModel, error) {
	return openrouterx.NewChatModel(ctx, c.Endpoint(), c.SettingsFor(agentType))
}
