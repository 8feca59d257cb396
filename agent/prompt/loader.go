package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

var (
	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/tech.txt
	techRaw string

	//go:embed template/billing.txt
	billingRaw string
)

// PromptSet holds the system prompt for each responder.
type PromptSet struct {
	Triage  string
	Tech    string
	Billing string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Triage:  strings.TrimSpace(triageRaw),
		Tech:    strings.TrimSpace(techRaw),
		Billing: strings.TrimSpace(billingRaw),
	}
}

// For returns the prompt of one agent, failing when it is empty.
func (p PromptSet) For(agentType contractx.AgentType) (string, error) {
	var out string
	switch agentType {
	case contractx.AgentTypeTriage:
		out = p.Triage
	case contractx.AgentTypeTech:
		out = p.Tech
	case contractx.AgentTypeBilling:
		out = p.Billing
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	return out, nil
}
