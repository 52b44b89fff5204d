package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"forecast-guard/internal/config"
	"forecast-guard/internal/domain"
	"forecast-guard/internal/events"
	"forecast-guard/internal/observability"
	"forecast-guard/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Server schedules validation cycles and serves their results over HTTP.
type Server struct {
	cfg     *config.Config
	service *validation.Service
	hub     *events.Hub
	logger  zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	started    time.Time
	lastRun    *validation.RunResult
	lastRunAt  time.Time
	lastErr    string
	cycleCount int
	running    bool
}

// NewServer creates a server. hub may be nil.
func NewServer(cfg *config.Config, service *validation.Service, hub *events.Hub, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		hub:     hub,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run starts the scheduler and the HTTP server and blocks until ctx is
// cancelled or either fails.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = s.now()
	s.mu.Unlock()

	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.runScheduler(gctx)
		return nil
	})

	g.Go(func() error {
		s.logger.Info().Str("addr", s.cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.hub != nil {
			s.hub.Close()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runScheduler runs a full cycle at startup and a queue cycle every tick.
func (s *Server) runScheduler(ctx context.Context) {
	s.runCycle(ctx, true)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx, false)
		}
	}
}

func (s *Server) runCycle(ctx context.Context, full bool) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("previous cycle still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	result, err := s.service.RunCycle(ctx, validation.CycleOptions{
		AutoRepair: s.cfg.AutoRepair,
		Full:       full,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRunAt = s.now()
	s.cycleCount++
	if result != nil {
		s.lastRun = result
	}
	if err != nil {
		s.lastErr = err.Error()
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("validation cycle failed")
		}
		return
	}
	s.lastErr = ""
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/quality", s.handleQuality)
	mux.Handle("/metrics", observability.Handler())
	if s.hub != nil {
		mux.Handle("/ws", s.hub)
	}
	return mux
}

// StatusResponse is returned by /status.
type StatusResponse struct {
	Status      string                `json:"status"`
	Uptime      string                `json:"uptime"`
	Cycles      int                   `json:"cycles"`
	Running     bool                  `json:"running"`
	LastRunAt   *time.Time            `json:"last_run_at,omitempty"`
	LastRun     *domain.ValidationRun `json:"last_run,omitempty"`
	LastErrors  []string              `json:"last_errors,omitempty"`
	LastFailure string                `json:"last_failure,omitempty"`
	Subscribers int                   `json:"subscribers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      s.now().Sub(s.started).Round(time.Second).String(),
		Cycles:      s.cycleCount,
		Running:     s.running,
		LastFailure: s.lastErr,
	}
	if !s.lastRunAt.IsZero() {
		at := s.lastRunAt
		resp.LastRunAt = &at
	}
	if s.lastRun != nil {
		run := s.lastRun.Run
		resp.LastRun = &run
		resp.LastErrors = s.lastRun.Errors
	}
	s.mu.Unlock()

	if s.hub != nil {
		resp.Subscribers = s.hub.Subscribers()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	window := s.cfg.WindowDays
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window_days must be an integer"})
			return
		}
		window = n
	}

	report, err := s.service.Quality(r.Context(), window)
	if err != nil {
		s.logger.Error().Err(err).Msg("quality report failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
