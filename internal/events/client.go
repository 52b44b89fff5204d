package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ClientConfig configures a Watch connection.
type ClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout bounds the wait for the next frame. It must exceed the
	// hub's PingInterval.
	ReadTimeout time.Duration
	// Buffer is the capacity of the returned channel.
	Buffer int
}

// DefaultClientConfig returns default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		Buffer:            256,
	}
}

// Watch connects to a hub at url and streams its events until ctx is
// cancelled. Dropped connections are redialed with exponential backoff.
// The first dial is not retried. The returned channel is closed when
// Watch stops.
func Watch(ctx context.Context, url string, config *ClientConfig, logger zerolog.Logger) (<-chan Event, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}

	conn, err := dialHub(ctx, url)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, cfg.Buffer)
	go func() {
		defer close(out)
		for {
			err := readEvents(ctx, conn, cfg.ReadTimeout, out, logger)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Str("url", url).Msg("event stream disconnected, reconnecting")

			conn, err = redial(ctx, url, cfg)
			if err != nil {
				return
			}
		}
	}()
	return out, nil
}

func dialHub(ctx context.Context, url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

func redial(ctx context.Context, url string, cfg ClientConfig) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ReconnectDelay
	b.MaxInterval = cfg.MaxReconnectDelay
	b.MaxElapsedTime = 0

	var conn *websocket.Conn
	operation := func() error {
		c, err := dialHub(ctx, url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

// readEvents decodes frames into out until the connection fails or ctx is done.
func readEvents(ctx context.Context, conn *websocket.Conn, readTimeout time.Duration, out chan<- Event, logger zerolog.Logger) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var e Event
		if err := json.Unmarshal(message, &e); err != nil {
			logger.Debug().Err(err).Msg("skipping malformed event")
			continue
		}

		select {
		case out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
