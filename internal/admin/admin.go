// Package admin implements the ops HTTP+WebSocket surface SPEC_FULL.md §3.1
// adds: liveness, a metrics snapshot, a config hot-patch endpoint, and a
// live-tick metrics stream. Grounded on CharGiway-miniarena's
// admin.go/metrics.go (GET/POST /admin/config, GET /metrics, mux wiring in
// main.go), generalized from a per-room config struct to the simulation
// core's tunables and routed through command.ConfigUpdate instead of
// mutating fields directly from the HTTP goroutine.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/command"
	"github.com/ArsnDev/CppMMO/internal/simcore"
)

// MetricsSource is the slice of *simcore.Core the admin surface needs.
type MetricsSource interface {
	Snapshot() simcore.Metrics
}

type Server struct {
	httpServer *http.Server
	metrics    MetricsSource
	commands   *command.Queue
	log        *zap.SugaredLogger
	upgrader   websocket.Upgrader
}

func New(addr string, metrics MetricsSource, commands *command.Queue, log *zap.SugaredLogger) *Server {
	s := &Server{
		metrics:  metrics,
		commands: commands,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/admin/config", s.handleConfig)
	mux.HandleFunc("/admin/stream", s.handleStream)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts it
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("admin surface listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.metrics.Snapshot())
}

// configPatch is the subset of simcore.Config exposed for hot-patching, the
// same narrow set the teacher's HandleAdminConfig allows.
type configPatch struct {
	MoveSpeed         *float32 `json:"moveSpeed,omitempty"`
	AOIUpdateInterval *uint64  `json:"aoiUpdateInterval,omitempty"`
	AOIPositionThresh *float64 `json:"aoiPositionThreshold,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := s.metrics.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"note":    "current simulation tunables are not exposed for reading; POST moveSpeed, aoiUpdateInterval or aoiPositionThreshold here to hot-patch",
			"sampled": snap,
		})
	case http.MethodPost:
		var patch configPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		s.commands.Push(command.Command{
			Timestamp: time.Now(),
			Payload: command.ConfigUpdate{
				MoveSpeed:         patch.MoveSpeed,
				AOIUpdateInterval: patch.AOIUpdateInterval,
				AOIPositionThresh: patch.AOIPositionThresh,
			},
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		s.log.Infow("admin config patch queued", "moveSpeed", patch.MoveSpeed, "aoiUpdateInterval", patch.AOIUpdateInterval, "aoiPositionThreshold", patch.AOIPositionThresh)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStream upgrades to a websocket and pushes one JSON metrics frame per
// second for a live ops dashboard — additive, fully decoupled from the
// authoritative raw-TCP game protocol.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("admin stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(s.metrics.Snapshot()); err != nil {
			return
		}
	}
}
