package authclient

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/session"
)

func newTestSession(t *testing.T) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	sess := session.New(1, server, zap.NewNop().Sugar(), nil, func(uint64) {})
	sess.Start()
	return sess, client
}

func readEnvelope(t *testing.T, conn net.Conn) protocol.Envelope {
	t.Helper()
	var header [4]byte
	if _, err := readFull(conn, header[:]); err != nil {
		t.Fatalf("read header: %v", err)
	}
	length := int(header[0]) | int(header[1])<<8 | int(header[2])<<16 | int(header[3])<<24
	body := make([]byte, length)
	if _, err := readFull(conn, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestHTTPClientVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"playerId": 42,
			"name":     "alice",
			"hp":       100,
			"maxHp":    100,
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, zap.NewNop().Sugar())
	done := make(chan VerifyResult, 1)
	client.VerifySessionTicketAsync(context.Background(), "ticket", func(r VerifyResult) { done <- r })

	select {
	case result := <-done:
		if !result.Success || result.PlayerID != 42 {
			t.Fatalf("unexpected result: %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestHTTPClientVerifyBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, zap.NewNop().Sugar())
	done := make(chan VerifyResult, 1)
	client.VerifySessionTicketAsync(context.Background(), "ticket", func(r VerifyResult) { done <- r })

	result := <-done
	if result.Success || result.ErrorCode != ErrCodeParseStatus {
		t.Fatalf("expected ErrCodeParseStatus, got %+v", result)
	}
}

func TestHTTPClientVerifyMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, zap.NewNop().Sugar())
	done := make(chan VerifyResult, 1)
	client.VerifySessionTicketAsync(context.Background(), "ticket", func(r VerifyResult) { done <- r })

	result := <-done
	if result.ErrorCode != ErrCodeParseBody {
		t.Fatalf("expected ErrCodeParseBody, got %+v", result)
	}
}

type fakeClient struct {
	result VerifyResult
}

func (f *fakeClient) VerifySessionTicketAsync(ctx context.Context, ticket string, callback func(VerifyResult)) {
	callback(f.result)
}

func TestHandlerRepliesSuccess(t *testing.T) {
	sess, conn := newTestSession(t)
	defer sess.Disconnect()

	handler := NewHandler(&fakeClient{result: VerifyResult{Success: true, PlayerID: 7, Name: "bob"}}, zap.NewNop().Sugar())
	handler.Handle(sess, protocol.CLogin{SessionTicket: "t", CommandId: 5})

	env := readEnvelope(t, conn)
	if env.PacketId != protocol.PacketSLoginSuccess {
		t.Fatalf("expected login success packet, got %v", env.PacketId)
	}
	var body protocol.SLoginSuccess
	if err := json.Unmarshal(env.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.PlayerInfo.PlayerId != 7 || body.CommandId != 5 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if sess.PlayerID() != 7 {
		t.Fatalf("expected session player id set to 7, got %d", sess.PlayerID())
	}
}

func TestHandlerRepliesFailureOnUnavailable(t *testing.T) {
	sess, conn := newTestSession(t)
	defer sess.Disconnect()

	handler := NewHandler(nil, zap.NewNop().Sugar())
	handler.Handle(sess, protocol.CLogin{SessionTicket: "t", CommandId: 1})

	env := readEnvelope(t, conn)
	if env.PacketId != protocol.PacketSLoginFailure {
		t.Fatalf("expected login failure packet, got %v", env.PacketId)
	}
	var body protocol.SLoginFailure
	if err := json.Unmarshal(env.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.ErrorCode != ErrCodeUnavailable {
		t.Fatalf("expected ErrCodeUnavailable, got %d", body.ErrorCode)
	}
}

func TestHandlerRepliesFailureOnRejection(t *testing.T) {
	sess, conn := newTestSession(t)
	defer sess.Disconnect()

	handler := NewHandler(&fakeClient{result: VerifyResult{Success: false, ErrorCode: 3, ErrorMessage: "bad ticket"}}, zap.NewNop().Sugar())
	handler.Handle(sess, protocol.CLogin{SessionTicket: "t", CommandId: 9})

	env := readEnvelope(t, conn)
	var body protocol.SLoginFailure
	if err := json.Unmarshal(env.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.ErrorCode != 3 || body.ErrorMessage != "bad ticket" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if sess.PlayerID() != 0 {
		t.Fatalf("expected player id unset on failure, got %d", sess.PlayerID())
	}
}
