package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
)

// Step is the graph node a turn is handed to after planning.
type Step string

const (
	StepDirectEscalation  Step = "direct_escalation"
	StepCollectEmail      Step = "collect_email"
	StepTriage            Step = "triage"
	StepTechSpecialist    Step = "tech_specialist"
	StepBillingSpecialist Step = "billing_specialist"
	StepSaveSession       Step = "save_session"
)

// Policy holds the routing toggles whose precedence is a deployment choice.
type Policy struct {
	CustomerIDShortcut     bool
	KeywordBillingFallback bool
	ContextWindow          int
}

func DefaultPolicy() Policy {
	return Policy{
		CustomerIDShortcut:     true,
		KeywordBillingFallback: true,
		ContextWindow:          routing.DefaultContextWindow,
	}
}

// PlanTurn applies the fixed priority order: explicit escalation request,
// then a pending email collection, then the customer-ID shortcut, and
// finally triage. The first match wins.
func PlanTurn(in *GraphState, policy Policy) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	switch {
	case routing.IsEscalationRequest(in.Message):
		in.Step = StepDirectEscalation
		in.Decision = routing.Decision{Kind: routing.KindDirectEscalate}
	case in.Session.WaitingForEmail:
		in.Step = StepCollectEmail
	default:
		if id, ok := routing.ExtractCustomerID(in.Message); ok && policy.CustomerIDShortcut {
			in.Step = StepBillingSpecialist
			in.Decision = routing.Decision{Kind: routing.KindRouteBilling, Payload: id}
			in.Query = customerIDQuery(in.Message, id)
			return in, nil
		}
		in.Step = StepTriage
	}
	return in, nil
}

// Branch reads the step chosen by the previous node.
func Branch(in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Step == "" {
		return "", fmt.Errorf("%w: no next step planned", contractx.ErrValidation)
	}
	return string(in.Step), nil
}

func customerIDQuery(message, customerID string) string {
	return message + "\n\nCustomer ID: " + customerID
}

func routedQuery(message, routingContext string) string {
	if routingContext == "" {
		return message
	}
	return message + "\n\nRouting context: " + routingContext
}
