package tool

import (
	"context"
	"fmt"
	"slices"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/knowledge"
)

const (
	ToolFAQAnswer      = "get_faq_answer"
	ToolTechSolution   = "get_tech_solution"
	ToolBillingInfo    = "get_billing_info"
	ToolEscalateHuman  = "escalate_to_human"
	defaultEscalateMsg = "Issue requiring human attention."
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Gateway binds the knowledge base and the escalation issuer to the
// per-agent tool catalogs.
type Gateway struct {
	kb        *knowledge.Base
	escalator contractx.Escalator
}

func NewGateway(kb *knowledge.Base, escalator contractx.Escalator) *Gateway {
	if kb == nil {
		kb = knowledge.NewBase(knowledge.Catalogs{})
	}
	return &Gateway{kb: kb, escalator: escalator}
}

func (g *Gateway) BuildForAgent(agentType contractx.AgentType) ([]*schema.ToolInfo, Executor) {
	return infosForAgent(agentType), g.NewExecutor(agentType)
}

// Execute runs a single tool call. Tool failures travel in the result,
// so the model can see them and recover.
func (g *Gateway) Execute(ctx context.Context, agentType contractx.AgentType, req contractx.ToolRequest) contractx.ToolResult {
	out, err := g.NewExecutor(agentType)(ctx, req.Tool, req.Args)
	if err != nil {
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}
	return out
}

func (g *Gateway) NewExecutor(agentType contractx.AgentType) Executor {
	fallback := DefaultExecutor(agentType)
	allowed := toolNames(agentType)
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		if !slices.Contains(allowed, tool) {
			return fallback(ctx, tool, args)
		}
		switch tool {
		case ToolFAQAnswer:
			return g.lookup(tool, args, "query", g.kb.LookupFAQ)
		case ToolTechSolution:
			return g.lookup(tool, args, "issue", g.kb.LookupTech)
		case ToolBillingInfo:
			return g.lookup(tool, args, "customer_id", g.kb.LookupBilling)
		case ToolEscalateHuman:
			return g.escalate(ctx, tool, args)
		default:
			return fallback(ctx, tool, args)
		}
	}
}

func DefaultExecutor(agentType contractx.AgentType) Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", tool, agentType),
		}, nil
	}
}

func toolNames(agentType contractx.AgentType) []string {
	infos := infosForAgent(agentType)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

func infosForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeTriage:
		return []*schema.ToolInfo{
			{
				Name: ToolFAQAnswer,
				Desc: "Look up the answer to a frequently asked question about hours, returns, shipping, or contact details.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "The customer's question", Required: true},
				}),
			},
		}
	case contractx.AgentTypeTech:
		return []*schema.ToolInfo{
			{
				Name: ToolTechSolution,
				Desc: "Find a troubleshooting solution for a technical issue.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"issue": {Type: schema.String, Desc: "Short description of the technical issue", Required: true},
				}),
			},
			escalateInfo(),
		}
	case contractx.AgentTypeBilling:
		return []*schema.ToolInfo{
			{
				Name: ToolBillingInfo,
				Desc: "Retrieve account balance, last payment date, and plan for a customer ID such as customer_101.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer_id": {Type: schema.String, Desc: "Customer ID in the form customer_<digits>", Required: true},
				}),
			},
			escalateInfo(),
		}
	default:
		return nil
	}
}

func escalateInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolEscalateHuman,
		Desc: "Create a support ticket for a human agent. Only call this when the customer's email address is known.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"summary":    {Type: schema.String, Desc: "Summary of the issue for the human agent", Required: true},
			"user_email": {Type: schema.String, Desc: "Customer email address", Required: true},
		}),
	}
}
