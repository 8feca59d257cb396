package escalation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Support-Router/agent/metrics"
	notifyx "github.com/tanpawarit/Chative-Support-Router/agent/notify"
)

const (
	DefaultEmail          = "customer@example.com"
	DefaultNotifyTimeout  = 15 * time.Second
	ticketIDLength        = 8
	confirmationTemplate  = "The issue has been escalated to a human support agent. Your ticket number is %s. A confirmation has been sent to %s."
	notificationSubject   = "Support Ticket #%s Created"
	notificationSignature = "Customer Support Team"
)

type Config struct {
	DefaultEmail  string        `envconfig:"DEFAULT_EMAIL" split_words:"true" default:"customer@example.com"`
	NotifyTimeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Issuer mints tickets and dispatches their notification best-effort.
// The ticket id returned to the user is the record of the escalation;
// notification failures are logged and counted, never returned.
type Issuer struct {
	notifier      notifyx.Notifier
	defaultEmail  string
	notifyTimeout time.Duration
	newTicketID   func() string

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

var _ contractx.Escalator = (*Issuer)(nil)

func NewIssuer(notifier notifyx.Notifier, cfg Config) *Issuer {
	if notifier == nil {
		notifier = notifyx.LogNotifier{}
	}
	email := strings.TrimSpace(cfg.DefaultEmail)
	if email == "" {
		email = DefaultEmail
	}
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &Issuer{
		notifier:      notifier,
		defaultEmail:  email,
		notifyTimeout: timeout,
		newTicketID:   NewTicketID,
	}
}

// NewTicketID returns 8 uppercase alphanumerics taken from a random UUID.
// No uniqueness check is made against earlier tickets.
func NewTicketID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:ticketIDLength])
}

func (i *Issuer) Escalate(ctx context.Context, summary string, email string) contractx.EscalationResult {
	dest := strings.TrimSpace(email)
	if dest == "" {
		dest = i.defaultEmail
	}

	ticket := contractx.EscalationTicket{
		TicketID: i.newTicketID(),
		Summary:  strings.TrimSpace(summary),
		Email:    dest,
	}
	metricsx.Escalations.Inc()
	log.Info().
		Str("ticket_id", ticket.TicketID).
		Str("email", ticket.Email).
		Str("summary", ticket.Summary).
		Msg("escalation: ticket issued")

	i.dispatch(ctx, ticket)

	return contractx.EscalationResult{
		Ticket:       ticket,
		Confirmation: fmt.Sprintf(confirmationTemplate, ticket.TicketID, ticket.Email),
	}
}

// Wait blocks until all in-flight notifications have finished.
// Escalations may still start while it waits; use Close at shutdown.
func (i *Issuer) Wait() {
	i.inflight.Wait()
}

// Close stops asynchronous dispatch and drains in-flight notifications.
// Escalations issued after Close deliver their notification inline.
func (i *Issuer) Close() {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()
	i.inflight.Wait()
}

func (i *Issuer) dispatch(ctx context.Context, ticket contractx.EscalationTicket) {
	n := notifyx.Notification{
		TicketID:    ticket.TicketID,
		Destination: ticket.Email,
		Subject:     fmt.Sprintf(notificationSubject, ticket.TicketID),
		Body:        notificationBody(ticket),
	}

	// The request may finish before delivery does.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.notifyTimeout)

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		defer cancel()
		i.deliver(notifyCtx, n)
		return
	}
	i.inflight.Add(1)
	i.mu.Unlock()

	go func() {
		defer i.inflight.Done()
		defer cancel()
		i.deliver(notifyCtx, n)
	}()
}

func (i *Issuer) deliver(ctx context.Context, n notifyx.Notification) {
	if err := i.notifier.Notify(ctx, n); err != nil {
		metricsx.NotificationFailures.Inc()
		log.Warn().
			Err(err).
			Str("ticket_id", n.TicketID).
			Str("destination", n.Destination).
			Msg("escalation: notification dispatch failed")
	}
}

func notificationBody(t contractx.EscalationTicket) string {
	var b strings.Builder
	b.WriteString("Dear Customer,\n\n")
	b.WriteString("Your support request has been received and escalated to our support team.\n\n")
	b.WriteString("Ticket Details:\n")
	fmt.Fprintf(&b, "- Ticket ID: %s\n", t.TicketID)
	b.WriteString("- Status: Open\n")
	fmt.Fprintf(&b, "- Summary: %s\n\n", t.Summary)
	b.WriteString("A support representative will contact you shortly to assist you with your issue.\n\n")
	fmt.Fprintf(&b, "Please keep this ticket number for your reference: %s\n\n", t.TicketID)
	b.WriteString("If you need to follow up on this ticket, please reply to this email or contact our support team with your ticket number.\n\n")
	b.WriteString("Best regards,\n")
	b.WriteString(notificationSignature)
	return b.String()
}
