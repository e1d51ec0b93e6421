package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/command"
	"github.com/ArsnDev/CppMMO/internal/simcore"
)

type fakeMetrics struct {
	snapshot simcore.Metrics
}

func (f *fakeMetrics) Snapshot() simcore.Metrics { return f.snapshot }

func TestHandleHealthz(t *testing.T) {
	s := New(":0", &fakeMetrics{}, command.NewQueue(nil), zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.handleHealthz(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected response: %d %q", w.Code, w.Body.String())
	}
}

func TestHandleMetrics(t *testing.T) {
	snap := simcore.Metrics{TickNumber: 42, PlayerCount: 3}
	s := New(":0", &fakeMetrics{snapshot: snap}, command.NewQueue(nil), zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.handleMetrics(w, req)

	var got simcore.Metrics
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TickNumber != 42 || got.PlayerCount != 3 {
		t.Fatalf("unexpected metrics: %+v", got)
	}
}

func TestHandleConfigPostQueuesUpdate(t *testing.T) {
	q := command.NewQueue(nil)
	s := New(":0", &fakeMetrics{}, q, zap.NewNop().Sugar())

	body := strings.NewReader(`{"moveSpeed": 7.5}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/config", body)
	w := httptest.NewRecorder()
	s.handleConfig(w, req)

	if w.Code != http.StatusOK && w.Code != 0 {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one queued command, got %d", q.Len())
	}
	cmd, ok := q.TryPop()
	if !ok {
		t.Fatal("expected a command to pop")
	}
	update, ok := cmd.Payload.(command.ConfigUpdate)
	if !ok {
		t.Fatalf("expected ConfigUpdate payload, got %T", cmd.Payload)
	}
	if update.MoveSpeed == nil || *update.MoveSpeed != 7.5 {
		t.Fatalf("unexpected move speed: %+v", update.MoveSpeed)
	}
}

func TestHandleConfigRejectsBadMethod(t *testing.T) {
	s := New(":0", &fakeMetrics{}, command.NewQueue(nil), zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodDelete, "/admin/config", nil)
	w := httptest.NewRecorder()
	s.handleConfig(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
