package stats

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSenderNeverBlocks(t *testing.T) {
	s := NewSender(2)

	// Nobody is draining the channel; every send must return immediately.
	for i := 0; i < 10; i++ {
		s.TrySend(Event{Method: "GET", Path: "/x", At: time.Now()})
	}

	if got := s.Dropped(); got != 8 {
		t.Errorf("dropped = %d, want 8", got)
	}
}

func TestSenderAfterClose(t *testing.T) {
	s := NewSender(4)
	s.Close()

	if s.TrySend(Event{Method: "GET", Path: "/"}) {
		t.Error("send accepted after Close")
	}
	if s.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", s.Dropped())
	}
}

func TestAggregatorCounts(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	events := []Event{
		{Method: "GET", Path: "/users", At: base},
		{Method: "GET", Path: "/users", At: base.Add(time.Second)},
		{Method: "POST", Path: "/users", At: base.Add(2 * time.Second)},
		{Method: "DELETE", Path: "/users", At: base.Add(3 * time.Second)},
		{Method: "OPTIONS", Path: "/users", At: base.Add(4 * time.Second)},
		{Method: "PUT", Path: "/items", At: base.Add(5 * time.Second)},
	}
	for _, ev := range events {
		a.Apply(ev)
	}

	snap := a.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d records, want 2", len(snap))
	}

	// Most recently seen first.
	if snap[0].Path != "/items" {
		t.Errorf("snapshot[0].Path = %q, want /items", snap[0].Path)
	}

	users := snap[1]
	if users.Counts.Get != 2 || users.Counts.Post != 1 || users.Counts.Delete != 1 || users.Counts.Other != 1 {
		t.Errorf("counts = %+v", users.Counts)
	}
	if !users.LastSeen.Equal(base.Add(4 * time.Second)) {
		t.Errorf("last seen = %v", users.LastSeen)
	}
}

func TestAggregatorRunDrainsSender(t *testing.T) {
	s := NewSender(16)
	a := NewAggregator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, s.Events())

	for i := 0; i < 5; i++ {
		s.TrySend(Event{Method: "GET", Path: "/p", At: time.Now()})
	}

	deadline := time.After(2 * time.Second)
	for {
		snap := a.Snapshot()
		if len(snap) == 1 && snap[0].Counts.Get == 5 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("aggregator never drained: %+v", a.Snapshot())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestMetricsExposition(t *testing.T) {
	s := NewSender(1)
	s.TrySend(Event{Method: "GET", Path: "/"})
	s.TrySend(Event{Method: "GET", Path: "/"}) // dropped

	m := NewMetrics("httptap", s)
	m.RecordExchange("GET", 200, 100, 2000)
	m.RecordExchange("POST", 502, 0, 0)
	m.TunnelOpened()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	out := string(body)

	for _, want := range []string{
		`httptap_requests_total{method="GET",status="200"} 1`,
		`httptap_requests_total{method="POST",status="502"} 1`,
		`httptap_tunnels_open 1`,
		`httptap_stats_events_dropped_total 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
