package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	if err := (<-ch).Write(&m); err != nil {
		t.Fatalf("read metric: %v", err)
	}
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	}
	t.Fatal("metric is neither gauge nor counter")
	return 0
}

func newClient(id, room string, buffer int) *WSClient {
	return &WSClient{ID: id, RoomID: room, Message: make(chan *WSMessage, buffer), done: make(chan struct{})}
}

func receive(t *testing.T, cl *WSClient) (*WSMessage, bool) {
	t.Helper()
	select {
	case msg, ok := <-cl.Message:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil, false
	}
}

func TestHubBroadcastsToRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub("audit.impersonation", "other")
	go hub.Run(ctx)

	a := newClient("a", "audit.impersonation", 4)
	b := newClient("b", "other", 4)
	hub.Register <- a
	hub.Register <- b

	hub.Broadcast <- &WSMessage{RoomID: "audit.impersonation", Content: `{"kind":"impersonation"}`}
	msg, ok := receive(t, a)
	if !ok || msg.Content != `{"kind":"impersonation"}` {
		t.Fatalf("unexpected message %#v", msg)
	}

	select {
	case msg := <-b.Message:
		t.Fatalf("other room should not receive %#v", msg)
	default:
	}
}

func TestHubRejectsUnknownRoomAndUnregisters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub("audit.impersonation")
	go hub.Run(ctx)

	stray := newClient("s", "nope", 1)
	hub.Register <- stray
	if _, ok := receive(t, stray); ok {
		t.Fatal("unknown room should close the client channel")
	}

	a := newClient("a", "audit.impersonation", 1)
	hub.Register <- a
	hub.Unregister <- a
	if _, ok := receive(t, a); ok {
		t.Fatal("unregister should close the client channel")
	}

	rooms := hub.Rooms()
	if len(rooms) != 1 || rooms[0].Clients != 0 {
		t.Fatalf("unexpected rooms %#v", rooms)
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub("audit.impersonation")
	go hub.Run(ctx)

	slow := newClient("slow", "audit.impersonation", 1)
	hub.Register <- slow
	hub.Broadcast <- &WSMessage{RoomID: "audit.impersonation", Content: "1"}
	hub.Broadcast <- &WSMessage{RoomID: "audit.impersonation", Content: "2"}

	if msg, ok := receive(t, slow); !ok || msg.Content != "1" {
		t.Fatalf("first message should be buffered, got %#v", msg)
	}
	if _, ok := receive(t, slow); ok {
		t.Fatal("slow client should have been dropped")
	}
}

func TestHubMetricsAreLabelledByChannel(t *testing.T) {
	const channel = "audit.metrics-test"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(channel)
	go hub.Run(ctx)

	subscribers := feedSubscribers.WithLabelValues(channel)
	slowDepartures := feedDepartures.WithLabelValues(channel, leftSlow)
	delivered := feedDelivered.WithLabelValues(channel)

	fast := newClient("fast", channel, 4)
	slow := newClient("slow", channel, 1)
	hub.Register <- fast
	hub.Register <- slow
	hub.Broadcast <- &WSMessage{RoomID: channel, Content: "1"}
	hub.Broadcast <- &WSMessage{RoomID: channel, Content: "2"}
	hub.Unregister <- fast
	// The hub channels are unbuffered, so once Run takes this send it has
	// finished handling everything before it.
	hub.Broadcast <- &WSMessage{RoomID: "unknown"}

	if got := metricValue(t, subscribers); got != 0 {
		t.Fatalf("subscribers = %v, want 0", got)
	}
	if got := metricValue(t, slowDepartures); got != 1 {
		t.Fatalf("slow departures = %v, want 1", got)
	}
	if got := metricValue(t, delivered); got != 3 {
		t.Fatalf("deliveries = %v, want 3", got)
	}
}
