package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewHub(nil).WithClock(func() time.Time { return fixedTime })
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	a := dial(t, server)
	b := dial(t, server)
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: TypeRepair, ForecastID: "fc-1", Message: "bounds swapped"})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var got Event
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, TypeRepair, got.Type)
		assert.Equal(t, "fc-1", got.ForecastID)
		assert.Equal(t, "bounds swapped", got.Message)
		assert.True(t, got.Timestamp.Equal(fixedTime))
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	hub := NewHub(&HubConfig{SendBuffer: 1, PingInterval: time.Minute, WriteTimeout: time.Second})

	// No writer drains this subscriber.
	s := &subscriber{send: make(chan []byte, 1)}
	require.True(t, hub.add(s, 0))

	hub.Publish(Event{Type: TypeValidation, ForecastID: "fc-1"})
	assert.Equal(t, 1, hub.Subscribers())

	hub.Publish(Event{Type: TypeValidation, ForecastID: "fc-2"})
	assert.Equal(t, 0, hub.Subscribers())

	msg, ok := <-s.send
	require.True(t, ok)
	assert.Contains(t, string(msg), `"forecast_id":"fc-1"`)
	_, ok = <-s.send
	assert.False(t, ok, "send channel should be closed after drop")
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// Publishing after close is a no-op.
	hub.Publish(Event{Type: TypeQuality})
}

func TestHub_AddAfterCloseRejected(t *testing.T) {
	hub := NewHub(nil)
	hub.Close()

	s := &subscriber{send: make(chan []byte, 1)}
	assert.False(t, hub.add(s, 2))
	assert.Equal(t, 0, hub.Subscribers())

	// the wait group holds nothing for the rejected subscriber
	done := make(chan struct{})
	go func() {
		hub.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait group not released")
	}
}

func TestHub_ZeroIntervalsUseDefaults(t *testing.T) {
	hub := NewHub(&HubConfig{SendBuffer: 4})
	defaults := DefaultHubConfig()
	assert.Equal(t, defaults.PingInterval, hub.config.PingInterval)
	assert.Equal(t, defaults.WriteTimeout, hub.config.WriteTimeout)

	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: TypeQuality, Message: "ok"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"type":"quality"`)
}
