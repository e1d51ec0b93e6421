package simcore

import (
	"time"

	"github.com/ArsnDev/CppMMO/internal/aoi"
	"github.com/ArsnDev/CppMMO/internal/command"
	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/spatial"
	"github.com/ArsnDev/CppMMO/internal/world"
)

// handlePlayerInput implements spec.md §4.12 step 2's PlayerInput dispatch:
// rate-limit, sequence-number freshness, then update input state and
// velocity.
func (c *Core) handlePlayerInput(in command.PlayerInput) {
	p, ok := c.world.GetPlayer(world.PlayerID(in.PlayerID))
	if !ok {
		c.log.Debugw("dropping input for unknown player", "playerId", in.PlayerID)
		return
	}
	if p.InputLimiter != nil && !p.InputLimiter.Allow() {
		return
	}
	if in.SequenceNumber <= p.LastInputSequence {
		return
	}

	p.LastInputTime = time.Now()
	p.LastInputSequence = in.SequenceNumber
	p.CurrentInputFlags = in.InputFlags

	dir := protocol.DirectionFromInputFlags(in.InputFlags)
	p.Velocity = world.Vec2{X: dir.X * p.MoveSpeed, Y: dir.Y * p.MoveSpeed}
}

// handleEnterZone implements spec.md §4.12 step 2's EnterZone dispatch:
// active players are rejected, inactive players reconnect in place, absent
// players spawn fresh.
func (c *Core) handleEnterZone(in command.EnterZone) {
	p, exists := c.world.GetPlayer(world.PlayerID(in.PlayerID))

	switch {
	case exists && p.Active:
		c.log.Warnw("enter zone requested for already-active player; dropping", "playerId", in.PlayerID)
		return

	case exists && !p.Active:
		p.Active = true
		p.SessionID = in.SessionID
		p.LastInputSequence = 0
		c.quadtree.Insert(spatial.PlayerID(p.ID), toSpatialVec2(p.Position))
		c.sendZoneEnteredAndBroadcastJoin(p, in.ZoneID)

	default:
		spawn := c.spawnPosition()
		p = &world.Player{
			ID:        world.PlayerID(in.PlayerID),
			Position:  spawn,
			HP:        100,
			MaxHP:     100,
			Active:    true,
			SessionID: in.SessionID,
			MoveSpeed: c.cfg.MoveSpeed,
		}
		p.InputLimiter = world.NewInputLimiter(c.cfg.MinInputInterval)
		c.world.AddPlayer(p)
		c.quadtree.Insert(spatial.PlayerID(p.ID), toSpatialVec2(p.Position))
		c.sendZoneEnteredAndBroadcastJoin(p, in.ZoneID)
	}
}

func (c *Core) sendZoneEnteredAndBroadcastJoin(p *world.Player, zoneID int32) {
	near := c.quadtree.Query(toSpatialVec2(p.Position), c.cfg.AOIRange)
	nearInfos := make([]protocol.PlayerInfo, 0, len(near))
	for _, id := range near {
		if id == spatial.PlayerID(p.ID) {
			continue
		}
		if other, ok := c.world.GetPlayer(world.PlayerID(id)); ok && other.Active {
			nearInfos = append(nearInfos, c.playerInfo(other))
		}
	}

	frame, err := c.encodeZoneEntered(zoneID, c.playerInfo(p), nearInfos)
	if err != nil {
		c.log.Errorw("encode zone entered", "playerId", p.ID, "error", err)
		return
	}
	c.addToBatch(p.ID, frame)

	joinFrame, err := c.encodePlayerJoined(c.playerInfo(p))
	if err != nil {
		c.log.Errorw("encode player joined", "playerId", p.ID, "error", err)
		return
	}
	for _, other := range c.world.GetAllPlayers() {
		if other.ID == p.ID || !other.Active {
			continue
		}
		c.addToBatch(other.ID, joinFrame)
	}
}

// handlePlayerDisconnect implements spec.md §4.12 step 2's PlayerDisconnect
// dispatch. It bypasses session validity since the session producing this
// command is already gone.
func (c *Core) handlePlayerDisconnect(in command.PlayerDisconnect) {
	p, ok := c.world.GetPlayer(world.PlayerID(in.PlayerID))
	if !ok {
		return
	}
	p.Active = false
	p.LastInputSequence = 0
	p.DisconnectTime = time.Now()
	c.quadtree.Remove(spatial.PlayerID(p.ID))
	c.aoiCache.Remove(aoi.PlayerID(p.ID))

	frame, err := c.encodePlayerLeft(uint64(p.ID))
	if err != nil {
		c.log.Errorw("encode player left", "playerId", p.ID, "error", err)
		return
	}
	for _, other := range c.world.GetAllPlayers() {
		if other.ID == p.ID || !other.Active {
			continue
		}
		c.addToBatch(other.ID, frame)
	}
}

// spawnPosition picks a uniformly distributed point within
// [20, mapWidth-20] x [20, mapHeight-20] (spec.md §4.12 step 2).
func (c *Core) spawnPosition() world.Vec2 {
	margin := float32(20)
	return world.Vec2{
		X: margin + c.rng.Float32()*(c.cfg.MapWidth-2*margin),
		Y: margin + c.rng.Float32()*(c.cfg.MapHeight-2*margin),
	}
}

func toSpatialVec2(v world.Vec2) spatial.Vec2 {
	return spatial.Vec2{X: v.X, Y: v.Y}
}
