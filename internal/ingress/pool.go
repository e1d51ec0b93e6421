// Package ingress implements the ingress worker pool spec.md §4.6 names:
// N workers draining a job queue distinct from the simulation command
// queue, validating and classifying each decoded frame body, then either
// dispatching synchronously (auth/chat) or converting it into a Command
// pushed onto the simulation's command.Queue.
//
// Grounded on the teacher's readPump decode-then-dispatch shape
// (CharGiway-miniarena/server/net_ws.go), split out into a dedicated
// fixed-size pool the way other_examples/ezmicken-go-space-serv__main.go and
// other_examples/hellsoul86-voxelcraft.ai__world.go both run a fixed
// goroutine pool draining a job channel.
package ingress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/command"
	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/session"
)

const DefaultWorkerCount = 4

// AuthHandler is the synchronous entry point for C_Login packets, invoked
// directly on an ingress worker goroutine (it only kicks off the actual
// async verification; see internal/authclient).
type AuthHandler func(sess *session.Session, login protocol.CLogin)

// ChatHandler is the synchronous entry point for C_Chat packets.
type ChatHandler func(sess *session.Session, chat protocol.CChat)

// Pool is a fixed-size set of workers draining an inbound job queue.
type Pool struct {
	jobs chan session.IngressJob

	commandQueue *command.Queue
	registry     *session.Registry
	validate     *validator.Validate
	log          *zap.SugaredLogger

	onLogin AuthHandler
	onChat  ChatHandler

	workerCount int
	queueDepth  int

	wg sync.WaitGroup
}

func New(workerCount, queueDepth int, commandQueue *command.Queue, registry *session.Registry, log *zap.SugaredLogger, onLogin AuthHandler, onChat ChatHandler) *Pool {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	return &Pool{
		jobs:         make(chan session.IngressJob, queueDepth),
		commandQueue: commandQueue,
		registry:     registry,
		validate:     validator.New(),
		log:          log,
		onLogin:      onLogin,
		onChat:       onChat,
		workerCount:  workerCount,
		queueDepth:   queueDepth,
	}
}

// Start spawns the worker goroutines. Each ranges over the job channel until
// Stop closes it.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop closes the job channel and waits for every worker to drain it.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit hands a decoded frame body to the pool. Blocks if every worker is
// busy and the queue is full, providing natural backpressure on the
// session's read loop (spec.md §5 notes inbound is rate-limited indirectly
// by the ingress pool).
func (p *Pool) Submit(job session.IngressJob) {
	p.jobs <- job
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(job)
	}
}

func (p *Pool) process(job session.IngressJob) {
	traceID := uuid.New()

	var env protocol.Envelope
	if err := json.Unmarshal(job.Body, &env); err != nil {
		p.log.Debugw("dropping malformed packet", "trace", traceID, "sessionId", job.SessionID, "error", err)
		return
	}
	if err := p.validate.Struct(&env); err != nil {
		p.log.Debugw("dropping packet failing validation", "trace", traceID, "sessionId", job.SessionID, "error", err)
		return
	}

	sess, ok := p.registry.Get(job.SessionID)
	if !ok {
		p.log.Debugw("dropping packet for unknown session", "trace", traceID, "sessionId", job.SessionID)
		return
	}

	if env.PacketId.NonGame() {
		p.dispatchNonGame(sess, env)
		return
	}
	p.dispatchGame(sess, env)
}

func (p *Pool) dispatchNonGame(sess *session.Session, env protocol.Envelope) {
	switch env.PacketId {
	case protocol.PacketCLogin:
		var body protocol.CLogin
		if !p.decodeAndValidate(env.Body, &body, sess.ID) {
			return
		}
		if p.onLogin != nil {
			p.onLogin(sess, body)
		}
	case protocol.PacketCChat:
		var body protocol.CChat
		if !p.decodeAndValidate(env.Body, &body, sess.ID) {
			return
		}
		if p.onChat != nil {
			p.onChat(sess, body)
		}
	default:
		p.log.Debugw("dropping unexpected non-game packet", "sessionId", sess.ID, "packetId", env.PacketId)
	}
}

func (p *Pool) dispatchGame(sess *session.Session, env protocol.Envelope) {
	switch env.PacketId {
	case protocol.PacketCPlayerInput:
		var body protocol.CPlayerInput
		if !p.decodeAndValidate(env.Body, &body, sess.ID) {
			return
		}
		p.commandQueue.Push(command.Command{
			SenderSessionID: sess.ID,
			Timestamp:       time.Now(),
			Payload: command.PlayerInput{
				PlayerID:       sess.PlayerID(),
				InputFlags:     body.InputFlags,
				SequenceNumber: body.SequenceNumber,
			},
		})
	case protocol.PacketCEnterZone:
		var body protocol.CEnterZone
		if !p.decodeAndValidate(env.Body, &body, sess.ID) {
			return
		}
		p.commandQueue.Push(command.Command{
			SenderSessionID: sess.ID,
			Timestamp:       time.Now(),
			Payload: command.EnterZone{
				PlayerID:  sess.PlayerID(),
				ZoneID:    body.ZoneId,
				SessionID: sess.ID,
			},
		})
	default:
		p.log.Debugw("dropping unknown packet id", "sessionId", sess.ID, "packetId", env.PacketId)
	}
}

func (p *Pool) decodeAndValidate(raw []byte, out interface{}, sessionID uint64) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		p.log.Debugw("dropping packet with malformed body", "sessionId", sessionID, "error", err)
		return false
	}
	if err := p.validate.Struct(out); err != nil {
		p.log.Debugw("dropping packet failing body validation", "sessionId", sessionID, "error", err)
		return false
	}
	return true
}
