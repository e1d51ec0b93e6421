// Package aoi implements the per-player visibility cache spec.md §4.11
// names: a cached visible set keyed by (last-tick, last-position),
// invalidated by a tick-count threshold or a movement threshold. Grounded on
// _examples/original_source/src/Game/Managers/GameManager.h's AOICache
// struct and ShouldUpdateAOI. Touched exclusively by the simulation
// goroutine (spec.md §5), so no locking is needed — a plain map suffices,
// the way Mikko-Finell-mine-and-die's single-owner spatial indices do.
package aoi

import (
	"github.com/ArsnDev/CppMMO/internal/spatial"
)

type PlayerID uint64

type entry struct {
	visible        []PlayerID
	lastUpdateTick uint64
	lastPosition   spatial.Vec2
}

// Cache holds one entry per player that has ever been queried.
type Cache struct {
	entries map[PlayerID]*entry

	updateInterval   uint64
	positionThreshold float64

	hits       uint64
	executions uint64
}

func New(updateInterval uint64, positionThreshold float64) *Cache {
	return &Cache{
		entries:           make(map[PlayerID]*entry),
		updateInterval:    updateInterval,
		positionThreshold: positionThreshold,
	}
}

// ShouldUpdate implements spec.md §4.11's three-way predicate.
func (c *Cache) ShouldUpdate(id PlayerID, pos spatial.Vec2, tick uint64) bool {
	e, ok := c.entries[id]
	if !ok {
		return true
	}
	if tick-e.lastUpdateTick >= c.updateInterval {
		return true
	}
	if spatial.Distance(pos, e.lastPosition) >= c.positionThreshold {
		return true
	}
	return false
}

// Get returns the cached visible set (nil if there is no entry), recording a
// cache hit whenever an entry exists. It does not check freshness itself, so
// callers check ShouldUpdate first.
func (c *Cache) Get(id PlayerID) []PlayerID {
	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	c.hits++
	return e.visible
}

// Put refreshes the cache entry after a fresh spatial query, recording a
// cache execution.
func (c *Cache) Put(id PlayerID, pos spatial.Vec2, tick uint64, visible []PlayerID) {
	c.executions++
	c.entries[id] = &entry{
		visible:        visible,
		lastUpdateTick: tick,
		lastPosition:   pos,
	}
}

// Remove drops a player's cache entry, e.g. on disconnect.
func (c *Cache) Remove(id PlayerID) {
	delete(c.entries, id)
}

// HitRatio returns hits / (hits + executions), for periodic reporting.
func (c *Cache) HitRatio() float64 {
	total := c.hits + c.executions
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// ResetCounters zeroes the hit/execution counters without touching cached
// entries, called once per metrics reporting window.
func (c *Cache) ResetCounters() {
	c.hits = 0
	c.executions = 0
}
