// Package server is the HTTP front-end: it upgrades /ws requests into
// client sessions, and serves /health and /metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/rs/zerolog"

	"gamehost/internal/monitoring"
	"gamehost/lobby"
	"gamehost/session"
	"gamehost/wire"
)

// Server accepts client connections and runs one session per connection.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	lobby  *lobby.Lobby

	listener net.Listener
	httpSrv  *http.Server

	// sessionSem caps concurrent sessions; acquired non-blocking so
	// over-capacity upgrades fail fast with 503.
	sessionSem chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedAt time.Time
}

// New builds a server bound to lb.
func New(cfg Config, lb *lobby.Lobby, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:        cfg,
		logger:     logger,
		lobby:      lb,
		sessionSem: make(chan struct{}, cfg.MaxConnections),
		ctx:        ctx,
		cancel:     cancel,
		startedAt:  time.Now(),
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", monitoring.MetricsHandler())

	s.httpSrv = &http.Server{
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.logger.Info().
		Str("addr", s.cfg.Addr).
		Int("max_connections", s.cfg.MaxConnections).
		Msg("Server listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()
	return nil
}

// Addr reports the bound listen address, useful with ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, cancels all sessions, and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.httpSrv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.ctx.Done():
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	select {
	case s.sessionSem <- struct{}{}:
	default:
		s.logger.Warn().
			Str("remote_addr", r.RemoteAddr).
			Int("max_connections", s.cfg.MaxConnections).
			Msg("Connection rejected, at capacity")
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		<-s.sessionSem
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	monitoring.ConnectionsTotal.Inc()
	monitoring.ConnectionsActive.Inc()

	s.wg.Add(1)
	go func() {
		defer func() {
			conn.Close()
			<-s.sessionSem
			monitoring.ConnectionsActive.Dec()
			s.wg.Done()
		}()
		sink, stream := wire.NewWebSocket(conn)
		session.Run(s.ctx, s.lobby, sink, stream, session.Config{
			MsgRate:  s.cfg.SessionMsgRate,
			MsgBurst: s.cfg.SessionMsgBurst,
		}, s.logger.With().Str("remote_addr", conn.RemoteAddr().String()).Logger())
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sample := monitoring.SampleSystem()
	payload := map[string]any{
		"status":          "ok",
		"uptime_sec":      int64(time.Since(s.startedAt).Seconds()),
		"connections":     len(s.sessionSem),
		"instances":       len(s.lobby.Instances()),
		"cpu_percent":     sample.CPUPercent,
		"memory_mb":       sample.MemoryMB,
		"max_connections": s.cfg.MaxConnections,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
