package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

const DefaultMaxIterations = 5

type responderImpl struct {
	agentType     contractx.AgentType
	stepRunner    compose.Runnable[map[string]any, *schema.Message]
	runtimeRunner compose.Runnable[contractx.ResponderRequest, contractx.ResponderResponse]
	executor      toolx.Executor
	allowedTools  map[string]struct{}
	maxIterations int
}

var _ contractx.Responder = (*responderImpl)(nil)

func newResponder(
	ctx context.Context,
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	tools []*schema.ToolInfo,
	executor toolx.Executor,
	maxIterations int,
) (*responderImpl, error) {
	if executor == nil {
		executor = toolx.DefaultExecutor(agentType)
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}
	stepRunner, err := compileStepGraph(ctx, toolModel, systemPrompt, string(agentType)+".step_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile step graph: %v", contractx.ErrModelInvoke, err)
	}

	allowedTools := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowedTools[t.Name] = struct{}{}
	}

	r := &responderImpl{
		agentType:     agentType,
		stepRunner:    stepRunner,
		executor:      executor,
		allowedTools:  allowedTools,
		maxIterations: maxIterations,
	}

	runtimeRunner, err := compileRuntimeGraph(ctx, agentType, r.runLoop)
	if err != nil {
		return nil, fmt.Errorf("%w: compile runtime graph: %v", contractx.ErrModelInvoke, err)
	}
	r.runtimeRunner = runtimeRunner

	return r, nil
}

func (r *responderImpl) Respond(ctx context.Context, req contractx.ResponderRequest) (contractx.ResponderResponse, error) {
	out, err := r.runtimeRunner.Invoke(ctx, req)
	if err != nil {
		return contractx.ResponderResponse{}, err
	}
	return out, nil
}

// runLoop calls the model until it answers without tool calls. Tool
// results are fed back as tool messages on the scratchpad.
func (r *responderImpl) runLoop(ctx context.Context, in *turnState) (contractx.ResponderResponse, error) {
	var scratchpad []*schema.Message

	for step := 0; step < r.maxIterations; step++ {
		msg, err := r.stepRunner.Invoke(ctx, map[string]any{
			keyInput:      in.Req.Input,
			keyHistory:    in.History,
			keyScratchpad: scratchpad,
		})
		if err != nil {
			return contractx.ResponderResponse{}, fmt.Errorf("%w: agent=%s step=%d: %v", contractx.ErrModelInvoke, r.agentType, step, err)
		}
		if msg == nil {
			return contractx.ResponderResponse{}, fmt.Errorf("%w: agent=%s returned no message", contractx.ErrSchemaViolation, r.agentType)
		}

		if len(msg.ToolCalls) == 0 {
			content := strings.TrimSpace(msg.Content)
			if content == "" {
				return contractx.ResponderResponse{}, fmt.Errorf("%w: agent=%s returned empty output", contractx.ErrSchemaViolation, r.agentType)
			}
			return contractx.ResponderResponse{Output: content}, nil
		}

		scratchpad = append(scratchpad, msg)
		for _, call := range msg.ToolCalls {
			result := r.runTool(ctx, call)
			scratchpad = append(scratchpad, schema.ToolMessage(encodeToolResult(result), call.ID))
		}
	}

	return contractx.ResponderResponse{}, fmt.Errorf("%w: agent=%s exceeded %d iterations", contractx.ErrSchemaViolation, r.agentType, r.maxIterations)
}

func (r *responderImpl) runTool(ctx context.Context, call schema.ToolCall) contractx.ToolResult {
	req, err := toToolRequest(call)
	if err != nil {
		return contractx.ToolResult{Tool: call.Function.Name, Error: err.Error()}
	}
	if _, ok := r.allowedTools[req.Tool]; !ok {
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is not allowed for agent=%s", req.Tool, r.agentType),
		}
	}

	out, err := r.executor(ctx, req.Tool, req.Args)
	if err != nil {
		log.Error().Err(err).Str("agent", string(r.agentType)).Str("tool", req.Tool).Msg("specialist: tool execution failed")
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}
	log.Debug().Str("agent", string(r.agentType)).Str("tool", req.Tool).Bool("tool_error", out.Error != "").Msg("specialist: tool executed")
	return out
}

func toToolRequest(call schema.ToolCall) (contractx.ToolRequest, error) {
	tool := strings.TrimSpace(call.Function.Name)
	if tool == "" {
		return contractx.ToolRequest{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
	}

	args := map[string]any{}
	if rawArgs := strings.TrimSpace(call.Function.Arguments); rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return contractx.ToolRequest{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
		}
	}
	return contractx.ToolRequest{Tool: tool, Args: args}, nil
}

func encodeToolResult(res contractx.ToolResult) string {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf(`{"tool":%q,"error":"unencodable result"}`, res.Tool)
	}
	return string(raw)
}
