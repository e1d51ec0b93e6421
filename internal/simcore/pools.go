package simcore

import (
	"bytes"
	"strconv"
	"sync"

	"github.com/ArsnDev/CppMMO/internal/protocol"
)

// builderPool hands out reusable byte buffers for per-tick packet encoding
// (spec.md §4.13): a thread-safe pool avoids a fresh allocation for every
// S_WorldSnapshot frame. Each new buffer is pre-grown to 1 KiB. sync.Pool has
// no capacity setting, so no pool size is configured or enforced: the pool
// holds however many idle buffers the GC has not yet reclaimed.
type builderPool struct {
	pool sync.Pool
}

func newBuilderPool() *builderPool {
	return &builderPool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := new(bytes.Buffer)
				buf.Grow(1024)
				return buf
			},
		},
	}
}

func (p *builderPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (p *builderPool) Put(buf *bytes.Buffer) {
	p.pool.Put(buf)
}

// statePool hands out reusable visible-state slices for snapshot composition
// (spec.md §4.13's "parallel pool ... for the per-snapshot visible-state
// vector", default reserve 200).
type statePool struct {
	pool sync.Pool
}

func newStatePool() *statePool {
	return &statePool{
		pool: sync.Pool{
			New: func() interface{} {
				return make([]protocol.PlayerSnapshotState, 0, 200)
			},
		},
	}
}

func (p *statePool) Get() []protocol.PlayerSnapshotState {
	return p.pool.Get().([]protocol.PlayerSnapshotState)[:0]
}

func (p *statePool) Put(s []protocol.PlayerSnapshotState) {
	p.pool.Put(s) //nolint:staticcheck // intentional: reuse backing array across ticks
}

// nameCache maps a player id to its display name ("Player_{id}"), bounded at
// maxNameCacheEntries (spec.md §4.13). No LRU library appears anywhere in
// the example pack, so eviction is a simple unordered drop-and-rebuild
// rather than a properly-ordered LRU — acceptable since names are cheap to
// regenerate and eviction is rare at 10 000 entries.
const maxNameCacheEntries = 10000

type nameCache struct {
	mu      sync.Mutex
	entries map[uint64]string
}

func newNameCache() *nameCache {
	return &nameCache{entries: make(map[uint64]string)}
}

func (c *nameCache) Name(playerID uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.entries[playerID]; ok {
		return name
	}
	if len(c.entries) >= maxNameCacheEntries {
		c.entries = make(map[uint64]string, maxNameCacheEntries/2)
	}
	name := formatPlayerName(playerID)
	c.entries[playerID] = name
	return name
}

func formatPlayerName(playerID uint64) string {
	return "Player_" + strconv.FormatUint(playerID, 10)
}
