// Package dashboard serves the live screener state over HTTP and
// websocket.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/erictidmore/stock-screener/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// Options parameterise the dashboard server.
type Options struct {
	ListenAddr string
}

// Server exposes the observer channel plus a few JSON endpoints.
type Server struct {
	hub     *broadcast.Hub
	state   func() broadcast.Message
	trigger func(ctx context.Context) bool
	opts    Options
	logger  zerolog.Logger
}

// New constructs the dashboard server. state assembles the current
// aggregate state; trigger requests a scan and reports whether one was
// started (false means coalesced with an in-flight scan).
func New(hub *broadcast.Hub, state func() broadcast.Message, trigger func(ctx context.Context) bool, opts Options, logger zerolog.Logger) *Server {
	if opts.ListenAddr == "" {
		opts.ListenAddr = ":8050"
	}
	return &Server{
		hub:     hub,
		state:   state,
		trigger: trigger,
		opts:    opts,
		logger:  logger.With().Str("component", "dashboard").Logger(),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("dashboard listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Routes builds the router. Split out so tests can drive it with
// httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/api/state", s.handleState)
	r.Post("/api/scan", s.handleScan)
	r.Get("/api/chart.png", s.handleChart)
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scanning not available"})
		return
	}
	if s.trigger(r.Context()) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
		return
	}
	writeJSON(w, http.StatusConflict, map[string]string{"status": "scan already in progress"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	broadcast.ServeConn(r.Context(), s.hub, conn, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
