package contract

import "context"

// Responder is the opaque "answer a query given tools" collaborator.
// Output is free-form text; callers parse control markers defensively.
type Responder interface {
	Respond(ctx context.Context, req ResponderRequest) (ResponderResponse, error)
}

type Registry interface {
	Triage() Responder
	Tech() Responder
	Billing() Responder
}

type Escalator interface {
	Escalate(ctx context.Context, summary string, email string) EscalationResult
}
