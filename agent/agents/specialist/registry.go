package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Support-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Support-Router/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

type registryImpl struct {
	triage  contractx.Responder
	tech    contractx.Responder
	billing contractx.Responder
}

func (r *registryImpl) Triage() contractx.Responder {
	return r.triage
}

func (r *registryImpl) Tech() contractx.Responder {
	return r.tech
}

func (r *registryImpl) Billing() contractx.Responder {
	return r.billing
}

type Option func(*options)

type options struct {
	maxIterations int
}

func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// ModelFactory returns the chat model for one agent.
type ModelFactory func(ctx context.Context, agentType contractx.AgentType) (einomodel.ToolCallingChatModel, error)

// OpenRouterModels builds each agent's model from its OpenRouter settings.
func OpenRouterModels(cfg llmx.Config) ModelFactory {
	return func(ctx context.Context, agentType contractx.AgentType) (einomodel.ToolCallingChatModel, error) {
		m, err := cfg.ChatModel(ctx, agentType)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, agentType, err)
		}
		return m, nil
	}
}

func NewRegistry(ctx context.Context, cfg llmx.Config, gateway *toolx.Gateway, opts ...Option) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewRegistryWithModels(ctx, OpenRouterModels(cfg), gateway, opts...)
}

func NewRegistryWithModels(ctx context.Context, models ModelFactory, gateway *toolx.Gateway, opts ...Option) (contractx.Registry, error) {
	o := options{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&o)
	}
	if gateway == nil {
		gateway = toolx.NewGateway(nil, nil)
	}

	prompts := promptx.LoadPromptSet()
	build := func(agentType contractx.AgentType) (contractx.Responder, error) {
		systemPrompt, err := prompts.For(agentType)
		if err != nil {
			return nil, err
		}
		chatModel, err := models(ctx, agentType)
		if err != nil {
			return nil, err
		}
		tools, executor := gateway.BuildForAgent(agentType)
		return newResponder(ctx, agentType, chatModel, systemPrompt, tools, executor, o.maxIterations)
	}

	triage, err := build(contractx.AgentTypeTriage)
	if err != nil {
		return nil, err
	}
	tech, err := build(contractx.AgentTypeTech)
	if err != nil {
		return nil, err
	}
	billing, err := build(contractx.AgentTypeBilling)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		triage:  triage,
		tech:    tech,
		billing: billing,
	}, nil
}
