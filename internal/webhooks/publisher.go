// Package webhooks delivers signed event callbacks to a configured endpoint.
package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config for outbound callbacks. An empty URL disables delivery.
type Config struct {
	URL         string
	Secret      string
	MaxAttempts int
	Timeout     time.Duration
	QueueSize   int
}

// Delivery is one queued event body.
type Delivery struct {
	ID        string
	EventType string
	TenantID  string
	Payload   []byte
	Attempts  int
}

type Publisher struct {
	cfg   Config
	queue chan Delivery
	now   func() time.Time
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Publisher{cfg: cfg, queue: make(chan Delivery, cfg.QueueSize), now: time.Now}
}

// Enabled reports whether a target URL is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.cfg.URL != "" }

// Emit queues an event for delivery. It never blocks; false means the event
// was dropped because delivery is disabled or the queue is full.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) bool {
	if !p.Enabled() {
		return false
	}
	id := "evt_" + uuid.NewString()
	payload := map[string]any{
		"id":       id,
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       p.now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	select {
	case p.queue <- Delivery{ID: id, EventType: eventType, TenantID: tenantID, Payload: body}:
		return true
	case <-ctx.Done():
		return false
	default:
		return false
	}
}

// Pending is the number of queued deliveries.
func (p *Publisher) Pending() int { return len(p.queue) }

func (p *Publisher) String() string {
	return fmt.Sprintf("webhooks(%s, queued=%d)", p.cfg.URL, len(p.queue))
}
