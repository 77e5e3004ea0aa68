package push

import (
	"context"
	"fmt"
	"time"

	"medipal/internal/platform/httpclient"
	"medipal/internal/platform/logger"
	"medipal/internal/ports/notifier"
)

const eventsPath = "/v1/events"

// Gateway reenvía los eventos del scheduler a un push gateway externo
// (APNs/FCM u otro relay) como JSON.
type Gateway struct {
	client *httpclient.Client
	log    logger.Logger
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config, log logger.Logger) (*Gateway, error) {
	c, err := httpclient.New(cfg.URL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("push gateway: %w", err)
	}
	if cfg.APIKey != "" {
		c.Headers = map[string]string{"X-Api-Key": cfg.APIKey}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{client: c, log: log.With(map[string]any{"component": "push_gateway"})}, nil
}

// envelope es el contrato con el gateway.
type envelope struct {
	Type         notifier.EventType  `json:"type"`
	Notification *notifier.Delivered `json:"notification,omitempty"`
	InstanceIDs  []string            `json:"instanceIds,omitempty"`
	SentAt       time.Time           `json:"sentAt"`
}

func (g *Gateway) Publish(ctx context.Context, e notifier.Event) error {
	body := envelope{
		Type:         e.Type,
		Notification: e.Notification,
		InstanceIDs:  e.InstanceIDs,
		SentAt:       time.Now().UTC(),
	}
	if err := g.client.PostJSON(ctx, eventsPath, body, nil); err != nil {
		return fmt.Errorf("push gateway: %w", err)
	}
	g.log.Debug("event forwarded", map[string]any{"type": e.Type})
	return nil
}

var _ notifier.Publisher = (*Gateway)(nil)
