package chat

import (
	"net"
	"testing"

	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/session"
)

func newPipeSession(t *testing.T, id uint64) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	sess := session.New(id, server, zap.NewNop().Sugar(), nil, func(uint64) {})
	sess.Start()
	return sess, client
}
