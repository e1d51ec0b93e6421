package session

import (
	"sync"
	"time"

	"github.com/ArsnDev/CppMMO/internal/command"
)

// Registry is the thread-safe sessionId -> *Session map. Grounded on
// CharGiway-miniarena/server/manager.go's RoomManager (mutex + map), adapted
// from rooms to sessions and stripped of the package-level singleton per
// spec.md §9's "ambient singletons -> explicit dependency passing".
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session

	commandQueue *command.Queue
}

func NewRegistry(commandQueue *command.Queue) *Registry {
	return &Registry{
		sessions:     make(map[uint64]*Session),
		commandQueue: commandQueue,
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove reads the session's playerId; if non-zero, it enqueues a
// PlayerDisconnect command before returning, so the simulation — never this
// caller — is the one that mutates world state (spec.md §4.3, §9).
func (r *Registry) Remove(sessionID uint64) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if playerID := s.PlayerID(); playerID != 0 && r.commandQueue != nil {
		r.commandQueue.Push(command.Command{
			SenderSessionID: sessionID,
			Timestamp:       time.Now(),
			Payload: command.PlayerDisconnect{
				PlayerID: playerID,
			},
		})
	}
}

func (r *Registry) Get(sessionID uint64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) GetAll() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
