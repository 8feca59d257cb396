package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/routing"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

const ActionProvideEmail = "provide_email"

type GraphInput struct {
	SessionID string
	Message   string
	History   []contractx.ChatTurn
}

type GraphOutput struct {
	Response       string
	SessionID      string
	RequiresAction bool
	ActionType     string
	Outcome        Outcome
	Route          contractx.AgentType
}

// Outcome names the single terminal action a turn took.
type Outcome string

const (
	OutcomeEscalated       Outcome = "escalated"
	OutcomeEmailRequested  Outcome = "email_requested"
	OutcomeEmailReprompted Outcome = "email_reprompted"
	OutcomeAnswered        Outcome = "answered"
	OutcomeSpecialist      Outcome = "specialist_answered"
)

type GraphState struct {
	SessionID string
	Message   string
	History   []contractx.ChatTurn
	Now       time.Time

	Session *statex.Session

	Step     Step
	Route    contractx.AgentType
	Query    string
	Decision routing.Decision

	Reply          string
	RequiresAction bool
	Outcome        Outcome
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Message:   message,
		History:   in.History,
		Now:       nowFn().UTC(),
	}, nil
}
