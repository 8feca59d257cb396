package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Support-Router/agent/metrics"
)

// Invoker calls responders with a per-call deadline.
type Invoker struct {
	Models  contractx.Registry
	Timeout time.Duration
}

func (iv Invoker) pick(agentType contractx.AgentType) (contractx.Responder, error) {
	var r contractx.Responder
	switch agentType {
	case contractx.AgentTypeTriage:
		r = iv.Models.Triage()
	case contractx.AgentTypeTech:
		r = iv.Models.Tech()
	case contractx.AgentTypeBilling:
		r = iv.Models.Billing()
	}
	if r == nil {
		return nil, fmt.Errorf("%w: no responder for agent=%s", contractx.ErrValidation, agentType)
	}
	return r, nil
}

// Invoke runs one responder call. Expiry of the per-call deadline is
// reported as ErrSpecialistTimeout.
func (iv Invoker) Invoke(ctx context.Context, agentType contractx.AgentType, req contractx.ResponderRequest) (string, error) {
	responder, err := iv.pick(agentType)
	if err != nil {
		return "", err
	}

	callCtx := ctx
	cancel := func() {}
	if iv.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, iv.Timeout)
	}
	defer cancel()

	started := time.Now()
	resp, err := responder.Respond(callCtx, req)
	status := "ok"
	defer func() {
		metricsx.ResponderLatency.WithLabelValues(string(agentType), status).Observe(time.Since(started).Seconds())
	}()

	if err != nil {
		status = "error"
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			status = "timeout"
			return "", fmt.Errorf("%w: agent=%s after %s", contractx.ErrSpecialistTimeout, agentType, iv.Timeout)
		}
		return "", fmt.Errorf("agent=%s: %w", agentType, err)
	}
	return resp.Output, nil
}

// DispatchSpecialist sends the planned query to the tech or billing
// responder. The raw output is interpreted by the next node.
func DispatchSpecialist(ctx context.Context, in *GraphState, agentType contractx.AgentType, invoker Invoker) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	query := in.Query
	if query == "" {
		query = in.Message
	}
	in.Route = agentType
	metricsx.Routes.WithLabelValues(string(agentType)).Inc()

	out, err := invoker.Invoke(ctx, agentType, contractx.ResponderRequest{
		Input:   query,
		History: in.History,
	})
	if err != nil {
		return nil, err
	}
	in.Reply = out
	return in, nil
}
