package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

const (
	keyInput      = "input"
	keyHistory    = "chat_history"
	keyScratchpad = "agent_scratchpad"
)

// compileStepGraph renders one model step: system prompt, prior turns,
// the current query, then any tool calls made so far in this turn.
func compileStepGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder(keyHistory, true),
		schema.UserMessage("{"+keyInput+"}"),
		schema.MessagesPlaceholder(keyScratchpad, true),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add step prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add step model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add step edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add step edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add step edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile step graph: %w", err)
	}
	return runner, nil
}

type turnState struct {
	Req     contractx.ResponderRequest
	History []*schema.Message
}

func compileRuntimeGraph(
	ctx context.Context,
	agentType contractx.AgentType,
	loop func(context.Context, *turnState) (contractx.ResponderResponse, error),
) (compose.Runnable[contractx.ResponderRequest, contractx.ResponderResponse], error) {
	graph := compose.NewGraph[contractx.ResponderRequest, contractx.ResponderResponse]()

	if err := graph.AddLambdaNode("validate_and_prepare",
		compose.InvokableLambda(func(ctx context.Context, req contractx.ResponderRequest) (*turnState, error) {
			if strings.TrimSpace(req.Input) == "" {
				return nil, fmt.Errorf("%w: responder input is required", contractx.ErrValidation)
			}
			return &turnState{
				Req:     req,
				History: historyMessages(req.History),
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add runtime validate node: %w", err)
	}

	if err := graph.AddLambdaNode("agent_loop",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (contractx.ResponderResponse, error) {
			if in == nil {
				return contractx.ResponderResponse{}, fmt.Errorf("%w: responder graph state is nil", contractx.ErrValidation)
			}
			return loop(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add runtime loop node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "validate_and_prepare"); err != nil {
		return nil, fmt.Errorf("add runtime edge start->validate: %w", err)
	}
	if err := graph.AddEdge("validate_and_prepare", "agent_loop"); err != nil {
		return nil, fmt.Errorf("add runtime edge validate->loop: %w", err)
	}
	if err := graph.AddEdge("agent_loop", compose.END); err != nil {
		return nil, fmt.Errorf("add runtime edge loop->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(string(agentType)+".runtime_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile runtime graph: %w", err)
	}
	return runner, nil
}

// historyMessages maps caller history onto chat roles. Only "user" is the
// customer; every other role is treated as the support side.
func historyMessages(history []contractx.ChatTurn) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if turn.IsUser() {
			out = append(out, schema.UserMessage(content))
			continue
		}
		out = append(out, schema.AssistantMessage(content, nil))
	}
	return out
}
