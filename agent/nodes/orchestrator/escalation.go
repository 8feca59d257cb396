package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
)

const (
	PromptDirectEscalation = "I'll help you connect with a human agent. Could you please provide your email address so we can create a support ticket?"
	PromptEmailReminder    = "I'm still waiting for your email address to escalate this. Could you please provide it?"

	directSummaryPrefix = "Customer requested direct escalation. Context: "
	fallbackSummary     = "Issue requiring human attention."
)

// DirectEscalation handles an explicit request for a human. With an email
// in the same message the ticket is issued now; otherwise the session is
// parked until one arrives.
func DirectEscalation(ctx context.Context, in *GraphState, escalator contractx.Escalator, policy Policy) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	recent := routing.RecentContext(in.History, policy.ContextWindow)
	if recent == "" {
		recent = "User: " + in.Message
	}
	summary := directSummaryPrefix + recent

	if email, ok := routing.ExtractEmail(in.Message); ok {
		res := escalator.Escalate(ctx, summary, email)
		in.Session.ClearPending()
		in.Reply = res.Confirmation
		in.Outcome = OutcomeEscalated
		log.Info().Str("session_id", in.SessionID).Str("ticket_id", res.Ticket.TicketID).Msg("orchestrator: direct escalation issued")
		return in, nil
	}

	in.Session.AwaitEmail(summary, in.Message)
	in.Reply = PromptDirectEscalation
	in.RequiresAction = true
	in.Outcome = OutcomeEmailRequested
	return in, nil
}

// CollectEmail finishes a pending escalation once the customer sends an
// address. Without one the state is left as is.
func CollectEmail(ctx context.Context, in *GraphState, escalator contractx.Escalator) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	email, ok := routing.ExtractEmail(in.Message)
	if !ok {
		in.Reply = PromptEmailReminder
		in.RequiresAction = true
		in.Outcome = OutcomeEmailReprompted
		return in, nil
	}

	summary := in.Session.EscalationSummary
	if summary == "" {
		summary = fallbackSummary
	}
	res := escalator.Escalate(ctx, summary, email)
	in.Session.ClearPending()
	in.Reply = res.Confirmation
	in.Outcome = OutcomeEscalated
	log.Info().Str("session_id", in.SessionID).Str("ticket_id", res.Ticket.TicketID).Msg("orchestrator: pending escalation completed")
	return in, nil
}
