package api

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
	"routeopt/internal/webhooks"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	other := b.Subscribe("t2")

	evt := Event{Type: "test.event", Data: map[string]any{"x": 1}}
	b.Publish("t1", evt)

	select {
	case got := <-ch:
		assert.Equal(t, evt.Type, got.Type)
		assert.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case <-other:
		t.Fatal("event leaked to another tenant")
	default:
	}

	b.Unsubscribe("t1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// second unsubscribe is a no-op
	assert.NotPanics(t, func() { b.Unsubscribe("t1", ch) })
	b.Unsubscribe("t2", other)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	for i := 0; i < 20; i++ {
		b.Publish("t1", Event{Type: "e"})
	}
	assert.Len(t, ch, cap(ch))
	b.Unsubscribe("t1", ch)
}

func TestRoutePublisherFansOut(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	defer b.Unsubscribe("t1", ch)
	hooks := webhooks.NewPublisher(webhooks.Config{URL: "http://example.invalid/hook"})

	rec := model.RouteRecord{
		ID:        "r1",
		PlanDate:  "2025-03-10",
		CreatedAt: time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC),
		Route:     model.RouteResult{StrategyUsed: model.StrategySolver, PackageCount: 2, FallbackReason: "external: not configured"},
	}
	RoutePublisher{Broker: b, Hooks: hooks}.PublishRoute(context.Background(), "t1", rec)

	got := <-ch
	assert.Equal(t, EventRouteOptimized, got.Type)
	assert.Equal(t, "r1", got.Data["routeId"])
	assert.Equal(t, "2025-03-10", got.Data["planDate"])
	assert.Equal(t, "2025-03-10T07:00:00Z", got.Data["createdAt"])
	assert.Equal(t, "external: not configured", got.Data["fallbackReason"])
	assert.Equal(t, 1, hooks.Pending())

	// disabled hooks are skipped
	RoutePublisher{Broker: b}.PublishRoute(context.Background(), "t1", rec)
	<-ch
}

func TestRedisBroker(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	b, err := NewRedisBroker(context.Background(), url)
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe("t_redis")
	b.Publish("t_redis", Event{Type: EventRouteOptimized, Data: map[string]any{"routeId": "r1"}})
	select {
	case got := <-ch:
		assert.Equal(t, "r1", got.Data["routeId"])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
	b.Unsubscribe("t_redis", ch)
}
