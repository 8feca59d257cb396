package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
)

func (g *Gateway) lookup(tool string, args map[string]any, key string, fn func(string) string) (contractx.ToolResult, error) {
	value, errMsg := stringArg(args, key)
	if errMsg != "" {
		return contractx.ToolResult{Tool: tool, Error: errMsg}, nil
	}
	return contractx.ToolResult{Tool: tool, Result: fn(value)}, nil
}

func (g *Gateway) escalate(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
	if g.escalator == nil {
		return contractx.ToolResult{Tool: tool, Error: "escalation is not configured"}, nil
	}

	summary, _ := stringArg(args, "summary")
	if summary == "" {
		summary = defaultEscalateMsg
	}
	rawEmail, errMsg := stringArg(args, "user_email")
	if errMsg != "" {
		return contractx.ToolResult{Tool: tool, Error: errMsg}, nil
	}
	email, ok := routing.ExtractEmail(rawEmail)
	if !ok {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("user_email %q is not a valid email address", rawEmail),
		}, nil
	}

	res := g.escalator.Escalate(ctx, summary, email)
	return contractx.ToolResult{Tool: tool, Result: res.Confirmation}, nil
}

func stringArg(args map[string]any, key string) (string, string) {
	raw, ok := args[key]
	if !ok {
		return "", key + " is required"
	}
	value, ok := raw.(string)
	if !ok {
		return "", key + " must be a string"
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", key + " must not be empty"
	}
	return value, ""
}
