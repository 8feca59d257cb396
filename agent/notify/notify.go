package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Notification is one outbound message about an escalation ticket.
type Notification struct {
	TicketID    string `json:"ticket_id"`
	Destination string `json:"destination"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier only records the notification. Used when no transport is
// configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Info().
		Str("ticket_id", n.TicketID).
		Str("destination", n.Destination).
		Str("subject", n.Subject).
		Msg("notify: no transport configured, notification logged only")
	return nil
}
