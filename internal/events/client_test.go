package events

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReceivesEvents(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	stream, err := Watch(ctx, wsURL, nil, zerolog.Nop())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: TypeQuality, Message: "overall 91.0 (A)"})

	select {
	case e := <-stream:
		assert.Equal(t, TypeQuality, e.Type)
		assert.Equal(t, "overall 91.0 (A)", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case _, ok := <-stream:
		for ok {
			_, ok = <-stream
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestWatch_DialFailure(t *testing.T) {
	_, err := Watch(context.Background(), "ws://127.0.0.1:1/ws", nil, zerolog.Nop())
	assert.Error(t, err)
}
