// Package session owns one connected client: its socket, an independent
// read loop and write loop, and a bounded-by-nothing outbound queue.
// Grounded on CharGiway-miniarena/server/net_ws.go's ClientConn
// (send-channel + writePump/readPump goroutines), generalized from a
// *websocket.Conn to a raw net.Conn plus the frame codec, since spec.md's
// game transport is raw length-prefixed TCP rather than a websocket.
package session

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/errs"
	"github.com/ArsnDev/CppMMO/internal/frame"
)

// State mirrors spec.md §4.2's {Connecting -> Connected -> Disconnecting ->
// Closed} state machine.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnecting
	StateClosed
)

// IngressJob is one decoded frame body handed to the ingress worker pool.
type IngressJob struct {
	SessionID uint64
	Body      []byte
}

// Session is the server's representation of one connected client.
type Session struct {
	ID   uint64
	conn net.Conn
	log  *zap.SugaredLogger

	playerID uint64 // atomic; 0 until authenticated

	state atomic.Int32

	outbound *outboundQueue

	submitIngress func(IngressJob)
	onDisconnect  func(sessionID uint64)

	disconnectOnce sync.Once
	closed         chan struct{}
}

// New constructs a Session in the Connecting state. submitIngress is called
// from the read loop for every decoded frame body; onDisconnect is called
// exactly once, from inside the first Disconnect call (an explicit call, or
// the one deferred by whichever loop exits first). It does not wait for the
// other loop to exit.
func New(id uint64, conn net.Conn, log *zap.SugaredLogger, submitIngress func(IngressJob), onDisconnect func(sessionID uint64)) *Session {
	s := &Session{
		ID:            id,
		conn:          conn,
		log:           log,
		outbound:      newOutboundQueue(),
		submitIngress: submitIngress,
		onDisconnect:  onDisconnect,
		closed:        make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

// PlayerID returns the authenticated player id, or 0 if not yet authenticated.
func (s *Session) PlayerID() uint64 { return atomic.LoadUint64(&s.playerID) }

// SetPlayerID is idempotent after the first call: subsequent calls are
// logged and ignored (spec.md §4.2).
func (s *Session) SetPlayerID(id uint64) {
	if !atomic.CompareAndSwapUint64(&s.playerID, 0, id) {
		s.log.Warnw("session player id already set; ignoring", "sessionId", s.ID, "existing", s.PlayerID(), "attempted", id)
	}
}

func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Start spawns the reader and writer goroutines and marks the session
// Connected.
func (s *Session) Start() {
	s.state.Store(int32(StateConnected))
	go s.writeLoop()
	go s.readLoop()
}

// Send encodes and enqueues a single payload. Callable from any goroutine.
func (s *Session) Send(body []byte) {
	if s.State() == StateClosed {
		return
	}
	encoded, err := frame.Encode(body)
	if err != nil {
		s.log.Errorw("encode outbound frame", "sessionId", s.ID, "error", err)
		return
	}
	s.outbound.Push(encoded)
}

// SendBatch encodes every body and enqueues them as one concatenated write,
// so they reach the socket back-to-back without interleaving another
// sender's frame between them.
func (s *Session) SendBatch(bodies [][]byte) {
	if s.State() == StateClosed || len(bodies) == 0 {
		return
	}
	batch, err := frame.EncodeBatch(bodies)
	if err != nil {
		s.log.Errorw("encode outbound batch", "sessionId", s.ID, "error", err)
		return
	}
	s.outbound.Push(batch)
}

// Disconnect is idempotent: it closes the socket, discards anything still
// in the outbound queue, and invokes the disconnect callback exactly once.
func (s *Session) Disconnect() {
	s.disconnectOnce.Do(func() {
		s.state.Store(int32(StateDisconnecting))
		s.outbound.Close()
		_ = s.conn.Close()
		close(s.closed)
		s.state.Store(int32(StateClosed))
		if s.onDisconnect != nil {
			s.onDisconnect(s.ID)
		}
	})
}

func (s *Session) writeLoop() {
	defer s.Disconnect()
	for {
		batches := s.outbound.PopAll()
		if len(batches) == 0 {
			select {
			case <-s.closed:
				return
			default:
			}
			s.outbound.Wait()
			select {
			case <-s.closed:
				return
			default:
			}
			continue
		}
		for _, buf := range batches {
			if _, err := s.conn.Write(buf); err != nil {
				s.handleIOError("write", err)
				return
			}
		}
	}
}

func (s *Session) readLoop() {
	defer s.Disconnect()

	var header [frame.HeaderSize]byte
	for {
		if _, err := io.ReadFull(s.conn, header[:]); err != nil {
			s.handleIOError("read header", err)
			return
		}
		length, err := frame.DecodeHeader(header)
		if err != nil {
			s.log.Warnw("malformed frame header; disconnecting", "sessionId", s.ID, "error", err)
			return
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(s.conn, body); err != nil {
			s.handleIOError("read body", err)
			return
		}
		if s.submitIngress != nil {
			s.submitIngress(IngressJob{SessionID: s.ID, Body: body})
		}
	}
}

func (s *Session) handleIOError(op string, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		s.log.Infow("session closed", "sessionId", s.ID, "op", op, "error", err)
	default:
		var netErr *net.OpError
		if errors.As(err, &netErr) && netErr.Op == "read" {
			s.log.Warnw("session io error", "sessionId", s.ID, "op", op, "error", err)
		} else {
			s.log.Errorw("session io error", "sessionId", s.ID, "op", op, "error", errs.Wrap(errs.KindTransientIO, op, err))
		}
	}
}
