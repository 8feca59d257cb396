package contract

import "strings"

type AgentType string

const (
	AgentTypeTriage  AgentType = "triage"
	AgentTypeTech    AgentType = "tech"
	AgentTypeBilling AgentType = "billing"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ChatTurn is one entry of the caller-supplied conversation history.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsUser reports whether the turn came from the customer, ignoring case.
// Anything else ("agent", "ai", "assistant") is treated as the support side.
func (t ChatTurn) IsUser() bool {
	return strings.EqualFold(strings.TrimSpace(string(t.Role)), string(RoleUser))
}

type ResponderRequest struct {
	Input   string     `json:"input"`
	History []ChatTurn `json:"chat_history"`
}

type ResponderResponse struct {
	Output string `json:"output"`
}

type EscalationTicket struct {
	TicketID string `json:"ticket_id"`
	Summary  string `json:"summary"`
	Email    string `json:"email"`
}

type EscalationResult struct {
	Ticket       EscalationTicket `json:"ticket"`
	Confirmation string           `json:"confirmation"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
