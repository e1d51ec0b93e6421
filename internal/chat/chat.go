// Package chat implements the Chat Handler and broker bridge spec.md §4.8
// describes: a C_Chat packet is published onto a shared "chat_channel"
// subject, and every server process (this one included) subscribes once and
// fans each message back out to its own connected sessions as S_Chat.
//
// Grounded on pixil98-go-mud/internal/messaging's NatsServer (Connect/
// Publish/Subscribe wrapper around nats.go), generalized from an embedded
// nats-server instance to a client connecting to an external broker, since
// spec.md's deployment runs one broker shared across many game server
// processes rather than one process embedding its own.
package chat

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/session"
)

const ChannelSubject = "chat_channel"

// publisher is the slice of *nats.Conn Handle needs; narrowed to an
// interface so tests can substitute a fake instead of dialing a real broker.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge owns the NATS connection and the one subscription that fans
// published chat lines out to this process's connected sessions.
type Bridge struct {
	conn     *nats.Conn
	pub      publisher
	registry *session.Registry
	log      *zap.SugaredLogger

	sub *nats.Subscription
}

func Connect(url string, registry *session.Registry, log *zap.SugaredLogger) (*Bridge, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("chat: connect to %s: %w", url, err)
	}
	return &Bridge{conn: conn, pub: conn, registry: registry, log: log}, nil
}

// Start subscribes to the shared chat channel. Every Bridge in the fleet —
// including this one — receives every published message, so a player's own
// chat line reaches them the same way it reaches everyone else.
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(ChannelSubject, b.onMessage)
	if err != nil {
		return fmt.Errorf("chat: subscribe %s: %w", ChannelSubject, err)
	}
	b.sub = sub
	return nil
}

// Close unsubscribes and closes the broker connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.conn.Close()
}

// Handle is the synchronous C_Chat entry point the ingress pool calls; it
// matches ingress.ChatHandler's signature. It publishes to the shared
// channel rather than writing directly to sessions — delivery happens in
// onMessage once the broker echoes the publish back.
func (b *Bridge) Handle(sess *session.Session, chat protocol.CChat) {
	playerID := sess.PlayerID()
	if playerID == 0 {
		b.log.Debugw("dropping chat from unauthenticated session", "sessionId", sess.ID)
		return
	}
	payload := []byte(fmt.Sprintf("%d|%s", playerID, chat.Message))
	if err := b.pub.Publish(ChannelSubject, payload); err != nil {
		b.log.Errorw("publish chat message", "sessionId", sess.ID, "error", err)
	}
}

func (b *Bridge) onMessage(msg *nats.Msg) {
	playerID, text, err := parseChatPayload(msg.Data)
	if err != nil {
		b.log.Warnw("dropping malformed chat broker message", "error", err)
		return
	}

	encoded, err := protocol.EncodeEnvelope(protocol.PacketSChat, protocol.SChat{
		PlayerId: playerID,
		Message:  text,
	})
	if err != nil {
		b.log.Errorw("encode chat broadcast", "error", err)
		return
	}

	// spec.md §4.8: delivered to every currently-registered session, not
	// just authenticated ones.
	for _, sess := range b.registry.GetAll() {
		sess.Send(encoded)
	}
}

func parseChatPayload(data []byte) (uint64, string, error) {
	s := string(data)
	idx := -1
	for i, c := range s {
		if c == '|' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, "", fmt.Errorf("chat: malformed payload %q", s)
	}
	var playerID uint64
	if _, err := fmt.Sscanf(s[:idx], "%d", &playerID); err != nil {
		return 0, "", fmt.Errorf("chat: malformed player id in %q: %w", s, err)
	}
	return playerID, s[idx+1:], nil
}
