package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
)

const (
	PromptTechEmail    = "I need your email address to escalate this technical issue. Could you please provide it?"
	PromptBillingEmail = "I need your email address to escalate this billing issue. Could you please provide it?"

	emptyAnswerFallback = "I'm sorry, I couldn't find an answer to that. Could you share a few more details about the issue?"
)

// InterpretSpecialist parses the specialist's raw reply. An email request
// parks the session; any other text is cleaned and returned.
func InterpretSpecialist(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Decision = routing.ParseSpecialist(in.Reply)
	if in.Decision.Kind == routing.KindNeedEmail {
		in.Session.AwaitEmail(in.Decision.Payload, in.Message)
		in.Reply = emailPromptFor(in.Route)
		in.RequiresAction = true
		in.Outcome = OutcomeEmailRequested
		return in, nil
	}

	reply := routing.Clean(in.Decision.Payload)
	if reply == "" {
		reply = emptyAnswerFallback
	}
	in.Reply = reply
	in.Outcome = OutcomeSpecialist
	return in, nil
}

func emailPromptFor(agentType contractx.AgentType) string {
	if agentType == contractx.AgentTypeBilling {
		return PromptBillingEmail
	}
	return PromptTechEmail
}
