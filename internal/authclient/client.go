// Package authclient implements the Auth Handler and HTTP client spec.md
// §4.7 describes: a C_Login packet triggers an async POST to an external
// auth service's /api/auth/verify endpoint, and the result is delivered back
// onto the owning session once the HTTP round trip completes.
//
// Grounded on CharGiway-miniarena's net_ws.go readPump, which decodes a
// client packet and reacts without blocking the read loop on external I/O;
// here the external I/O is a real HTTP call instead of an in-process method,
// so the call runs on its own goroutine and the reply is posted back via
// Session.Send, which is itself a thread-safe producer into the session's
// single-writer outbound queue — the Go equivalent of "posted back onto the
// shared event loop so responses serialize with other per-session writes."
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/session"
)

// Error codes spec.md §4.7 assigns to verification failures. Positive codes
// are passed through from the auth service's own response body.
const (
	ErrCodeDNS         int32 = -1
	ErrCodeConnect     int32 = -2
	ErrCodeWrite       int32 = -4
	ErrCodeRead        int32 = -5
	ErrCodeParseStatus int32 = -6
	ErrCodeParseBody   int32 = -7
	ErrCodeOther       int32 = -8
	ErrCodeUnavailable int32 = -99
)

// VerifyResult is the decoded outcome of a ticket verification call.
type VerifyResult struct {
	Success      bool
	PlayerID     uint64
	Name         string
	X, Y, Z      float32
	HP, MaxHP    int32
	ErrorCode    int32
	ErrorMessage string
}

// verifyResponseBody is the auth service's JSON response shape.
type verifyResponseBody struct {
	Success      bool    `json:"success"`
	PlayerID     uint64  `json:"playerId"`
	Name         string  `json:"name"`
	X            float32 `json:"x"`
	Y            float32 `json:"y"`
	Z            float32 `json:"z"`
	HP           int32   `json:"hp"`
	MaxHP        int32   `json:"maxHp"`
	ErrorCode    int32   `json:"errorCode"`
	ErrorMessage string  `json:"errorMessage"`
}

// Client performs the HTTP round trip to the auth service. An interface so
// tests can substitute a fake without a real listener.
type Client interface {
	VerifySessionTicketAsync(ctx context.Context, ticket string, callback func(VerifyResult))
}

// HTTPClient is the production Client, grounded on net/http's client with an
// explicit timeout (spec.md §4.7's "the call must not block the reader
// indefinitely").
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *zap.SugaredLogger
}

func NewHTTPClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Log:        log,
	}
}

// VerifySessionTicketAsync fires the POST on its own goroutine and invokes
// callback with the outcome; callback may run on any goroutine and must not
// assume it holds any lock.
func (c *HTTPClient) VerifySessionTicketAsync(ctx context.Context, ticket string, callback func(VerifyResult)) {
	go func() {
		callback(c.verify(ctx, ticket))
	}()
}

func (c *HTTPClient) verify(ctx context.Context, ticket string) VerifyResult {
	reqBody, err := json.Marshal(map[string]string{"SessionTicket": ticket})
	if err != nil {
		return VerifyResult{ErrorCode: ErrCodeOther, ErrorMessage: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/auth/verify", bytes.NewReader(reqBody))
	if err != nil {
		return VerifyResult{ErrorCode: ErrCodeOther, ErrorMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return VerifyResult{ErrorCode: classifyDialError(err), ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VerifyResult{ErrorCode: ErrCodeParseStatus, ErrorMessage: fmt.Sprintf("auth service returned status %d", resp.StatusCode)}
	}

	var body verifyResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return VerifyResult{ErrorCode: ErrCodeParseBody, ErrorMessage: err.Error()}
	}

	return VerifyResult{
		Success:      body.Success,
		PlayerID:     body.PlayerID,
		Name:         body.Name,
		X:            body.X,
		Y:            body.Y,
		Z:            body.Z,
		HP:           body.HP,
		MaxHP:        body.MaxHP,
		ErrorCode:    body.ErrorCode,
		ErrorMessage: body.ErrorMessage,
	}
}

// classifyDialError distinguishes DNS, connect, and write failures the way
// spec.md §4.7 requires, by unwrapping net.OpError/net.DNSError.
func classifyDialError(err error) int32 {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrCodeDNS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			return ErrCodeConnect
		case "write":
			return ErrCodeWrite
		case "read":
			return ErrCodeRead
		}
	}
	return ErrCodeOther
}

// Handler is the synchronous C_Login entry point the ingress pool calls;
// it matches ingress.AuthHandler's signature.
type Handler struct {
	client Client
	log    *zap.SugaredLogger
}

func NewHandler(client Client, log *zap.SugaredLogger) *Handler {
	return &Handler{client: client, log: log}
}

// Handle kicks off async verification for a login attempt. If client is nil
// (auth service not configured), it replies immediately with ErrCodeUnavailable.
func (h *Handler) Handle(sess *session.Session, login protocol.CLogin) {
	if h.client == nil {
		h.replyFailure(sess, ErrCodeUnavailable, "auth service unavailable", login.CommandId)
		return
	}

	traceID := uuid.New()
	h.log.Infow("verifying session ticket", "trace", traceID, "sessionId", sess.ID)

	h.client.VerifySessionTicketAsync(context.Background(), login.SessionTicket, func(result VerifyResult) {
		if sess.State() == session.StateClosed {
			h.log.Debugw("login reply dropped; session closed", "trace", traceID, "sessionId", sess.ID)
			return
		}
		if !result.Success {
			code := result.ErrorCode
			msg := result.ErrorMessage
			if code == 0 {
				code = ErrCodeOther
			}
			h.log.Warnw("session ticket verification failed", "trace", traceID, "sessionId", sess.ID, "errorCode", code, "errorMessage", msg)
			h.replyFailure(sess, code, msg, login.CommandId)
			return
		}

		sess.SetPlayerID(result.PlayerID)
		h.log.Infow("session ticket verified", "trace", traceID, "sessionId", sess.ID, "playerId", result.PlayerID)
		h.replySuccess(sess, result, login.CommandId)
	})
}

func (h *Handler) replySuccess(sess *session.Session, result VerifyResult, commandID int64) {
	body := protocol.SLoginSuccess{
		PlayerInfo: protocol.PlayerInfo{
			PlayerId: result.PlayerID,
			Name:     result.Name,
			X:        result.X,
			Y:        result.Y,
			Z:        result.Z,
			HP:       result.HP,
			MaxHP:    result.MaxHP,
		},
		CommandId: commandID,
	}
	encoded, err := protocol.EncodeEnvelope(protocol.PacketSLoginSuccess, body)
	if err != nil {
		h.log.Errorw("encode login success", "sessionId", sess.ID, "error", err)
		return
	}
	sess.Send(encoded)
}

func (h *Handler) replyFailure(sess *session.Session, code int32, message string, commandID int64) {
	body := protocol.SLoginFailure{
		ErrorCode:    code,
		ErrorMessage: message,
		CommandId:    commandID,
	}
	encoded, err := protocol.EncodeEnvelope(protocol.PacketSLoginFailure, body)
	if err != nil {
		h.log.Errorw("encode login failure", "sessionId", sess.ID, "error", err)
		return
	}
	sess.Send(encoded)
}
