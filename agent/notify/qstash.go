package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	qstashx "github.com/tanpawarit/Chative-Support-Router/pkg/qstash"
)

type QStashConfig struct {
	WebhookURL string `envconfig:"WEBHOOK_URL" split_words:"true"`
}

type publisher interface {
	PublishJSON(ctx context.Context, destination string, payload any) (qstashx.PublishResponse, error)
}

// QStashNotifier relays the notification to a ticketing webhook through
// QStash, which owns delivery retries.
type QStashNotifier struct {
	client  publisher
	webhook string
}

func NewQStashNotifier(client publisher, cfg QStashConfig) (*QStashNotifier, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	webhook := strings.TrimSpace(cfg.WebhookURL)
	if webhook == "" {
		return nil, errors.New("qstash webhook url is required")
	}
	return &QStashNotifier{client: client, webhook: webhook}, nil
}

func (q *QStashNotifier) Notify(ctx context.Context, n Notification) error {
	if _, err := q.client.PublishJSON(ctx, q.webhook, n); err != nil {
		return fmt.Errorf("qstash publish ticket=%s: %w", n.TicketID, err)
	}
	return nil
}

// Multi fans a notification out to every notifier and joins the failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
