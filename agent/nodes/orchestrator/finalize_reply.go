package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}

	out := GraphOutput{
		Response:       reply,
		SessionID:      in.SessionID,
		RequiresAction: in.RequiresAction,
		Outcome:        in.Outcome,
		Route:          in.Route,
	}
	if in.RequiresAction {
		out.ActionType = ActionProvideEmail
	}
	return out, nil
}
