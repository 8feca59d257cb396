package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	stateNodes := []struct {
		name string
		fn   func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
	}{
		{"load_session", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, o.store)
		}},
		{"plan_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PlanTurn(in, o.policy)
		}},
		{string(nodex.StepDirectEscalation), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DirectEscalation(ctx, in, o.escalator, o.policy)
		}},
		{string(nodex.StepCollectEmail), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CollectEmail(ctx, in, o.escalator)
		}},
		{string(nodex.StepTriage), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunTriage(ctx, in, o.invoker, o.policy)
		}},
		{string(nodex.StepTechSpecialist), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchSpecialist(ctx, in, contractx.AgentTypeTech, o.invoker)
		}},
		{string(nodex.StepBillingSpecialist), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchSpecialist(ctx, in, contractx.AgentTypeBilling, o.invoker)
		}},
		{"interpret_specialist", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InterpretSpecialist(in)
		}},
		{string(nodex.StepSaveSession), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, o.store)
		}},
	}
	for _, n := range stateNodes {
		if err := graph.AddLambdaNode(n.name, compose.InvokableLambda[*nodex.GraphState, *nodex.GraphState](n.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	if err := graph.AddBranch("plan_turn", stepBranch(
		nodex.StepDirectEscalation,
		nodex.StepCollectEmail,
		nodex.StepBillingSpecialist,
		nodex.StepTriage,
	)); err != nil {
		return nil, fmt.Errorf("add branch plan_turn: %w", err)
	}
	if err := graph.AddBranch(string(nodex.StepTriage), stepBranch(
		nodex.StepSaveSession,
		nodex.StepTechSpecialist,
		nodex.StepBillingSpecialist,
	)); err != nil {
		return nil, fmt.Errorf("add branch triage: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_session"},
		{"load_session", "plan_turn"},
		{string(nodex.StepDirectEscalation), string(nodex.StepSaveSession)},
		{string(nodex.StepCollectEmail), string(nodex.StepSaveSession)},
		{string(nodex.StepTechSpecialist), "interpret_specialist"},
		{string(nodex.StepBillingSpecialist), "interpret_specialist"},
		{"interpret_specialist", string(nodex.StepSaveSession)},
		{string(nodex.StepSaveSession), "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

func stepBranch(steps ...nodex.Step) *compose.GraphBranch {
	ends := make(map[string]bool, len(steps))
	for _, s := range steps {
		ends[string(s)] = true
	}
	return compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.Branch(in)
		},
		ends,
	)
}
