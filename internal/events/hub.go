// Package events broadcasts validation activity to websocket subscribers.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"forecast-guard/internal/observability"
)

// Event types.
const (
	TypeValidation  = "validation"
	TypeRepair      = "repair"
	TypeRepairError = "repair_error"
	TypeQuality     = "quality"
)

// Event is one message pushed to subscribers.
type Event struct {
	Type       string    `json:"type"`
	ForecastID string    `json:"forecast_id,omitempty"`
	Severity   string    `json:"severity,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data,omitempty"`
}

// HubConfig configures subscriber connections.
type HubConfig struct {
	// SendBuffer is the number of events queued per subscriber before it is dropped.
	SendBuffer int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected subscriber. Publish never blocks:
// a subscriber whose buffer is full is disconnected.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewHub creates a hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	defaults := DefaultHubConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 1
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
		subs:   make(map[*subscriber]struct{}),
	}
}

// WithLogger sets the hub logger.
func (h *Hub) WithLogger(l zerolog.Logger) *Hub {
	h.logger = l
	return h
}

// WithClock sets a custom clock used to stamp events.
func (h *Hub) WithClock(now func() time.Time) *Hub {
	h.now = now
	return h
}

// ServeHTTP upgrades the request and registers the connection as a subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	if !h.add(s, 2) {
		_ = conn.Close()
		return
	}
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("subscriber connected")

	go h.writeLoop(s)
	go h.readLoop(s)
}

// Publish broadcasts an event to every subscriber.
func (h *Hub) Publish(e Event) {
	if h.closed.Load() {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}

	msg, err := json.Marshal(e)
	if err != nil {
		h.logger.Error().Err(err).Str("type", e.Type).Msg("marshal event")
		return
	}

	h.mu.Lock()
	var slow []*subscriber
	for s := range h.subs {
		select {
		case s.send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		h.logger.Warn().Msg("dropping slow subscriber")
		h.remove(s)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and waits for connection goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed.Swap(true) {
		h.mu.Unlock()
		return
	}
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.remove(s)
	}
	h.wg.Wait()
}

// add registers s and reserves workers goroutines on the wait group.
// It reports false once the hub is closed.
func (h *Hub) add(s *subscriber, workers int) bool {
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		return false
	}
	h.subs[s] = struct{}{}
	h.wg.Add(workers)
	n := len(h.subs)
	h.mu.Unlock()
	observability.UpdateSubscribers(n)
	return true
}

// remove unregisters s and closes its send channel exactly once.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, s)
	close(s.send)
	n := len(h.subs)
	h.mu.Unlock()
	observability.UpdateSubscribers(n)
}

func (h *Hub) writeLoop(s *subscriber) {
	defer h.wg.Done()
	defer s.conn.Close()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

// readLoop discards client messages and detects disconnects.
func (h *Hub) readLoop(s *subscriber) {
	defer h.wg.Done()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.remove(s)
			return
		}
	}
}
