package webhooks

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"routeopt/internal/logger"
	"routeopt/internal/metrics"
)

// Worker drains the publisher queue and POSTs each delivery, retrying
// failures with exponential backoff up to MaxAttempts.
type Worker struct {
	Pub         *Publisher
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int

	backoff func(attempts int) time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
	once    sync.Once
}

func NewWorker(p *Publisher) *Worker {
	attempts := p.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	timeout := p.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Worker{
		Pub:         p,
		HTTP:        &http.Client{Timeout: timeout},
		Stop:        make(chan struct{}),
		MaxAttempts: attempts,
		backoff:     nextBackoff,
		log:         logger.WithComponent("webhooks"),
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.Stop:
				return
			case d := <-w.Pub.queue:
				w.deliver(d)
			}
		}
	}()
}

// Shutdown stops the loop and waits for the in-flight delivery.
func (w *Worker) Shutdown() {
	w.once.Do(func() { close(w.Stop) })
	w.wg.Wait()
}

// deliver retries one delivery until it succeeds, attempts run out or the
// worker is stopped. It reports whether the endpoint accepted it.
func (w *Worker) deliver(d Delivery) bool {
	for {
		code, err := w.send(d)
		d.Attempts++
		if code >= 200 && code < 300 {
			metrics.WebhookDeliveries.WithLabelValues(d.EventType, "delivered").Inc()
			return true
		}
		if d.Attempts >= w.MaxAttempts {
			metrics.WebhookDeliveries.WithLabelValues(d.EventType, "failed").Inc()
			w.log.Warn("webhook delivery failed", "id", d.ID, "event", d.EventType, "attempts", d.Attempts, "code", code, "error", err)
			return false
		}
		metrics.WebhookDeliveries.WithLabelValues(d.EventType, "retry").Inc()
		select {
		case <-w.Stop:
			return false
		case <-time.After(w.backoff(d.Attempts - 1)):
		}
	}
}

func (w *Worker) send(d Delivery) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.HTTP.Timeout+time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Pub.cfg.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Event-Id", d.ID)
	req.Header.Set("X-Attempt", strconv.Itoa(d.Attempts+1))
	if w.Pub.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, sign(w.Pub.cfg.Secret, d.ID, d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	metrics.WebhookLatency.WithLabelValues(d.EventType).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
