// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/paysync/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func fakeClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func sampleEvent() models.ReconciliationEvent {
	return models.ReconciliationEvent{
		EventID:    "evt-1",
		OrderID:    "ORD-1",
		Outcome:    models.OutcomeConfirmedSuccess,
		Source:     models.SourceWebhook,
		Amount:     999,
		OccurredAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	a, b := fakeClient(hub, 4), fakeClient(hub, 4)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	require.NoError(t, hub.BroadcastReconciliation(sampleEvent()))
	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			assert.Equal(t, MessageTypeReconciliation, msg.Type)
			ev, ok := msg.Data.(models.ReconciliationEvent)
			require.True(t, ok)
			assert.Equal(t, "ORD-1", ev.OrderID)
		case <-time.After(2 * time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}

	hub.Unregister <- a
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	_, open := <-a.send
	assert.False(t, open, "unregister closes the send channel")

	// Unregistering twice must not panic on a closed channel.
	hub.Unregister <- a
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
}

func TestHubDropsSlowClients(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	slow := fakeClient(hub, 1)
	fast := fakeClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.BroadcastJSON(MessageTypeReconciliation, i))
	}
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	waitFor(t, func() bool { return len(fast.send) == 3 })
}

func TestHubShutdownClosesClients(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- hub.RunWithContext(ctx) }()

	c := fakeClient(hub, 1)
	hub.Register <- c
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Zero(t, hub.GetClientCount())
	_, open := <-c.send
	assert.False(t, open)
}

func TestBroadcastJSONFull(t *testing.T) {
	t.Parallel()
	hub := NewHub() // not running, so the buffer never drains

	var err error
	for i := 0; i <= cap(hub.broadcast); i++ {
		err = hub.BroadcastJSON("x", i)
	}
	assert.ErrorIs(t, err, ErrBroadcastFull)
}

type stubSource struct {
	events []models.ReconciliationEvent
	err    error
}

func (s *stubSource) Run(ctx context.Context, h func(context.Context, models.ReconciliationEvent) error) error {
	for _, ev := range s.events {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestForwarderRelaysEvents(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)
	c := fakeClient(hub, 4)
	hub.Register <- c
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f := NewForwarder(&stubSource{events: []models.ReconciliationEvent{sampleEvent()}}, hub)
	go func() { _ = f.Serve(ctx) }()

	select {
	case msg := <-c.send:
		assert.Equal(t, MessageTypeReconciliation, msg.Type)
	case <-ctx.Done():
		t.Fatal("event not forwarded")
	}
	assert.Equal(t, "websocket-forwarder", f.String())
}

func TestForwarderPropagatesSourceError(t *testing.T) {
	t.Parallel()
	boom := errors.New("subscribe failed")
	f := NewForwarder(&stubSource{err: boom}, NewHub())
	assert.ErrorIs(t, f.Serve(context.Background()), boom)
}

func TestServeWSEndToEnd(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, Upgrader(nil), w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong Message
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, MessageTypePong, pong.Type)

	require.NoError(t, hub.BroadcastReconciliation(sampleEvent()))
	var got struct {
		Type string                     `json:"type"`
		Data models.ReconciliationEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, MessageTypeReconciliation, got.Type)
	assert.Equal(t, "ORD-1", got.Data.OrderID)

	require.NoError(t, conn.Close())
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}

func TestUpgraderOrigin(t *testing.T) {
	t.Parallel()
	up := Upgrader([]string{"https://admin.example.com"})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/ws", nil)
	assert.True(t, up.CheckOrigin(req), "no origin header")

	req.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "http://api.example.com")
	assert.True(t, up.CheckOrigin(req), "same origin")
}
