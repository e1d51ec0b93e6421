package simcore

import (
	"time"

	"github.com/ArsnDev/CppMMO/internal/aoi"
	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/spatial"
	"github.com/ArsnDev/CppMMO/internal/world"
)

// integrateMotion implements spec.md §4.12 step 3: each active player's
// position advances by velocity*deltaSeconds if the result stays within map
// bounds; otherwise the previous position is kept (no slide, no clamp).
func (c *Core) integrateMotion(deltaSeconds float32) {
	for _, p := range c.world.GetAllPlayers() {
		if !p.Active {
			continue
		}
		if p.Velocity.X == 0 && p.Velocity.Y == 0 {
			continue
		}
		proposed := world.Vec2{
			X: p.Position.X + p.Velocity.X*deltaSeconds,
			Y: p.Position.Y + p.Velocity.Y*deltaSeconds,
		}
		if c.withinBounds(proposed) {
			p.Position = proposed
			c.quadtree.Update(spatial.PlayerID(p.ID), toSpatialVec2(p.Position))
		}
	}
}

// withinBounds matches the half-open [0, mapWidth) x [0, mapHeight) invariant
// internal/spatial's quadtree bounds use, so a committed position always has
// a home quadrant.
func (c *Core) withinBounds(pos world.Vec2) bool {
	return pos.X >= 0 && pos.X < c.cfg.MapWidth && pos.Y >= 0 && pos.Y < c.cfg.MapHeight
}

// composeSnapshots implements spec.md §4.12 step 4: for each active player,
// resolve its visible set (via the AOI cache, falling back to a fresh
// quadtree query) and append an S_WorldSnapshot frame to its per-tick batch.
func (c *Core) composeSnapshots() {
	serverTime := time.Now().UnixMilli()

	for _, p := range c.world.GetAllPlayers() {
		if !p.Active {
			continue
		}

		pos := toSpatialVec2(p.Position)
		visible := c.visiblePlayers(p.ID, pos)

		states := c.states.Get()
		for _, id := range visible {
			other, ok := c.world.GetPlayer(world.PlayerID(id))
			if !ok {
				continue
			}
			states = append(states, protocol.PlayerSnapshotState{
				PlayerId: uint64(other.ID),
				X:        other.Position.X,
				Y:        other.Position.Y,
				VX:       other.Velocity.X,
				VY:       other.Velocity.Y,
				Active:   other.Active,
			})
		}

		frame, err := c.encodeWorldSnapshot(c.tickNumber, serverTime, states)
		c.states.Put(states)
		if err != nil {
			c.log.Errorw("encode world snapshot", "playerId", p.ID, "error", err)
			continue
		}
		c.addToBatch(p.ID, frame)
	}
}

// visiblePlayers resolves the AOI-cached visible set for one player,
// querying the quadtree fresh only when the cache deems it stale (spec.md
// §4.11's tick/movement invalidation thresholds).
func (c *Core) visiblePlayers(id world.PlayerID, pos spatial.Vec2) []spatial.PlayerID {
	aoiID := aoi.PlayerID(id)
	if !c.aoiCache.ShouldUpdate(aoiID, pos, c.tickNumber) {
		cached := c.aoiCache.Get(aoiID)
		out := make([]spatial.PlayerID, len(cached))
		for i, pid := range cached {
			out[i] = spatial.PlayerID(pid)
		}
		return out
	}

	found := c.quadtree.Query(pos, c.cfg.AOIRange)
	cacheIDs := make([]aoi.PlayerID, len(found))
	for i, pid := range found {
		cacheIDs[i] = aoi.PlayerID(pid)
	}
	c.aoiCache.Put(aoiID, pos, c.tickNumber, cacheIDs)
	return found
}
