package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Support-Router/agent/metrics"
	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/orchestrator"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

const DefaultSpecialistTimeout = 60 * time.Second

type Config struct {
	// Policy nil means nodex.DefaultPolicy. A set policy is used as given,
	// except that a non-positive ContextWindow takes the default window.
	Policy            *nodex.Policy
	SpecialistTimeout time.Duration
}

type TurnInput struct {
	SessionID string
	Message   string
	History   []contractx.ChatTurn
}

type TurnOutput struct {
	Response       string
	SessionID      string
	RequiresAction bool
	ActionType     string
}

type Orchestrator struct {
	store     statex.Store
	locker    *statex.Locker
	escalator contractx.Escalator
	invoker   nodex.Invoker
	policy    nodex.Policy

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(
	store statex.Store,
	models contractx.Registry,
	escalator contractx.Escalator,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if escalator == nil {
		return nil, errors.New("escalator is required")
	}

	policy := nodex.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
		if policy.ContextWindow <= 0 {
			policy.ContextWindow = routing.DefaultContextWindow
		}
	}
	timeout := cfg.SpecialistTimeout
	if timeout <= 0 {
		timeout = DefaultSpecialistTimeout
	}

	o := &Orchestrator{
		store:     store,
		locker:    statex.NewLocker(),
		escalator: escalator,
		invoker:   nodex.Invoker{Models: models, Timeout: timeout},
		policy:    policy,
		now:       time.Now,
		newID:     uuid.NewString,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one turn. Turns for the same session are serialized;
// a missing session id starts a new session.
func (o *Orchestrator) HandleMessage(ctx context.Context, in TurnInput) (TurnOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return TurnOutput{}, ErrInvalidMessage
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = o.newID()
	}

	unlock, err := o.locker.Lock(ctx, sessionID)
	if err != nil {
		return TurnOutput{}, err
	}
	defer unlock()

	started := time.Now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Message:   in.Message,
		History:   in.History,
	})
	if err != nil {
		metricsx.Turns.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("session_id", sessionID).Msg("orchestrator: turn failed")
		return TurnOutput{SessionID: sessionID}, err
	}

	metricsx.Turns.WithLabelValues(string(out.Outcome)).Inc()
	log.Info().
		Str("session_id", sessionID).
		Str("outcome", string(out.Outcome)).
		Str("route", string(out.Route)).
		Bool("requires_action", out.RequiresAction).
		Dur("elapsed", time.Since(started)).
		Msg("orchestrator: turn handled")

	return TurnOutput{
		Response:       out.Response,
		SessionID:      out.SessionID,
		RequiresAction: out.RequiresAction,
		ActionType:     out.ActionType,
	}, nil
}
