// Package listener accepts TCP connections, applies the
// maximum-concurrent-connections admission cap, and wires new sessions into
// the registry. Grounded on pixil98-go-mud/internal/listener/ssh.go's
// accept-loop shape (context cancellation closes the listener, Accept
// errors checked against ctx.Done() before logging) combined with spec.md
// §4.4's concrete admission/backlog/Nagle policy.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/session"
)

const (
	DefaultMaxConnections = 600

	// backlog documents the intended kernel listen backlog (spec.md §4.4).
	// net.ListenConfig has no field for it; the actual backlog comes from
	// net.core.somaxconn at listen(2) time (see DESIGN.md).
	backlog = 128
)

// Listener accepts TCP connections and registers sessions.
type Listener struct {
	addr           string
	maxConnections int

	registry      *session.Registry
	log           *zap.SugaredLogger
	submitIngress func(session.IngressJob)
	onConnected   func(*session.Session)

	nextSessionID atomic.Uint64

	ln net.Listener
}

func New(addr string, maxConnections int, registry *session.Registry, log *zap.SugaredLogger, submitIngress func(session.IngressJob), onConnected func(*session.Session)) *Listener {
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}
	return &Listener{
		addr:           addr,
		maxConnections: maxConnections,
		registry:       registry,
		log:            log,
		submitIngress:  submitIngress,
		onConnected:    onConnected,
	}
}

// Run opens the acceptor and blocks accepting connections until ctx is
// canceled or a fatal accept error occurs.
func (l *Listener) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listener: listen on %s: %w", l.addr, err)
	}
	l.ln = ln
	l.log.Infow("listening", "addr", l.addr, "maxConnections", l.maxConnections)

	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
			}
			if isFatalAcceptError(err) {
				l.log.Warnw("listener accept error; stopping", "error", err)
				wg.Wait()
				return nil
			}
			l.log.Errorw("accept error", "error", err)
			continue
		}

		if l.registry.Count() >= l.maxConnections {
			l.log.Warnw("connection cap reached; rejecting", "remote", conn.RemoteAddr(), "max", l.maxConnections)
			_ = conn.Close()
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
			_ = tcpConn.SetLinger(0)
		}

		id := l.nextSessionID.Add(1)
		sess := session.New(id, conn, l.log, l.submitIngress, l.registry.Remove)
		l.registry.Add(sess)
		sess.Start()
		if l.onConnected != nil {
			l.onConnected(sess)
		}
	}
}

func isFatalAcceptError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
