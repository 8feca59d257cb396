package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
)

// RunTriage asks the triage responder and turns its text into a decision.
// A routing marker wins; failing that, billing keywords in the query may
// still send it to billing; anything else is the answer itself.
func RunTriage(ctx context.Context, in *GraphState, invoker Invoker, policy Policy) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	out, err := invoker.Invoke(ctx, contractx.AgentTypeTriage, contractx.ResponderRequest{
		Input:   in.Message,
		History: in.History,
	})
	if err != nil {
		return nil, err
	}

	in.Decision = routing.ParseTriage(out)
	switch {
	case in.Decision.Kind == routing.KindRouteTech:
		in.Step = StepTechSpecialist
		in.Query = routedQuery(in.Message, in.Decision.Payload)
	case in.Decision.Kind == routing.KindRouteBilling:
		in.Step = StepBillingSpecialist
		in.Query = routedQuery(in.Message, in.Decision.Payload)
	case policy.KeywordBillingFallback && routing.HasBillingKeywords(in.Message):
		in.Step = StepBillingSpecialist
		in.Decision = routing.Decision{Kind: routing.KindRouteBilling}
		in.Query = in.Message
	default:
		in.Step = StepSaveSession
		in.Route = contractx.AgentTypeTriage
		in.Reply = routing.Clean(in.Decision.Payload)
		if in.Reply == "" {
			in.Reply = emptyAnswerFallback
		}
		in.Outcome = OutcomeAnswered
	}

	log.Debug().
		Str("session_id", in.SessionID).
		Str("decision", string(in.Decision.Kind)).
		Str("next", string(in.Step)).
		Msg("orchestrator: triage decided")
	return in, nil
}
