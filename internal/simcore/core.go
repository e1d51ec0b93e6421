// Package simcore is the authoritative Simulation Core spec.md §4.12
// describes: it owns the world model and spatial index, runs the tick loop
// on a single dedicated goroutine, drains the command queue, integrates
// motion, composes per-player snapshots, and flushes outbound batches.
//
// Grounded on CharGiway-miniarena/server/tick.go's ticker-driven loop and
// room.go's ProcessInputs/UpdateWorld/Broadcast phase split, generalized
// from a fixed 4-direction grid-step world to spec.md's continuous AOI-
// filtered simulation, and on
// original_source/src/Game/Managers/GameManager.cpp's GameLoop for the
// exact sleep/drain/integrate/snapshot/report phase sequence and its
// 1 ms-yield tick boundary (kept verbatim rather than switched to a
// time.Ticker, since spec.md's outline specifically names the yield loop).
package simcore

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ArsnDev/CppMMO/internal/aoi"
	"github.com/ArsnDev/CppMMO/internal/command"
	"github.com/ArsnDev/CppMMO/internal/protocol"
	"github.com/ArsnDev/CppMMO/internal/session"
	"github.com/ArsnDev/CppMMO/internal/spatial"
	"github.com/ArsnDev/CppMMO/internal/world"
)

// Core is the simulation's single owner of world state. Apart from Run and
// Snapshot, its methods run only on the tick goroutine; nothing outside this
// package ever mutates world state directly
// (spec.md §5, §9: "ambient singletons -> explicit dependency passing").
type Core struct {
	cfg Config

	world    *world.World
	quadtree *spatial.QuadTree
	aoiCache *aoi.Cache

	commandQueue *command.Queue
	registry     *session.Registry
	log          *zap.SugaredLogger

	builders *builderPool
	states   *statePool
	names    *nameCache

	batches map[world.PlayerID][][]byte

	tickNumber uint64
	metrics    *Metrics

	lastReportMu sync.RWMutex
	lastReport   Metrics

	rng *rand.Rand
}

func New(cfg Config, commandQueue *command.Queue, registry *session.Registry, log *zap.SugaredLogger) *Core {
	return &Core{
		cfg:          cfg,
		world:        world.New(),
		quadtree:     spatial.New(0, 0, cfg.MapWidth, cfg.MapHeight),
		aoiCache:     aoi.New(cfg.AOIUpdateInterval, cfg.AOIPositionThreshold),
		commandQueue: commandQueue,
		registry:     registry,
		log:          log,
		builders:     newBuilderPool(),
		states:       newStatePool(),
		names:        newNameCache(),
		batches:      make(map[world.PlayerID][][]byte),
		metrics:      newMetrics(),
		rng:          rand.New(rand.NewSource(1)),
	}
}

// Run executes the tick loop until ctx is canceled or the command queue is
// shut down. It is the only method meant to run on its own goroutine.
func (c *Core) Run(ctx context.Context) error {
	c.log.Infow("simulation core starting", "tickRate", c.cfg.TickRate)
	tickDuration := c.cfg.tickDuration()
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			c.log.Infow("simulation core stopping", "tick", c.tickNumber)
			return nil
		default:
		}

		now := time.Now()
		if now.Sub(lastTick) < tickDuration {
			time.Sleep(time.Millisecond)
			continue
		}
		lastTick = now

		deltaSeconds := tickDuration.Seconds()

		start := time.Now()
		processed, shutdown := c.processCommands(ctx)
		c.metrics.recordCommand(time.Since(start), processed)
		if shutdown {
			c.log.Infow("simulation core stopping; command queue shut down", "tick", c.tickNumber)
			return nil
		}

		c.tickNumber++

		start = time.Now()
		c.integrateMotion(float32(deltaSeconds))
		c.metrics.recordWorldUpdate(time.Since(start))

		start = time.Now()
		c.composeSnapshots()
		c.metrics.recordSnapshot(time.Since(start))

		c.flushBatches()

		if c.tickNumber%c.cfg.StatsReportInterval == 0 {
			c.reportAndSweep()
		}
	}
}

// processCommands drains up to CommandBatchSize commands or until
// MaxProcessingTime elapses, whichever comes first (spec.md §4.12 step 2).
// The second return value reports whether the command queue has shut down.
func (c *Core) processCommands(ctx context.Context) (uint64, bool) {
	deadline := time.Now().Add(c.cfg.MaxProcessingTime)
	var n uint64
	for n < uint64(c.cfg.CommandBatchSize) {
		select {
		case <-ctx.Done():
			return n, false
		default:
		}
		if time.Now().After(deadline) {
			break
		}
		cmd, ok := c.commandQueue.TryPop()
		if !ok {
			break
		}
		if cmd.IsShutdown() {
			return n, true
		}
		c.dispatchCommand(cmd)
		n++
	}
	return n, false
}

func (c *Core) dispatchCommand(cmd command.Command) {
	switch payload := cmd.Payload.(type) {
	case command.PlayerInput:
		c.handlePlayerInput(payload)
	case command.EnterZone:
		c.handleEnterZone(payload)
	case command.PlayerDisconnect:
		c.handlePlayerDisconnect(payload)
	case command.ConfigUpdate:
		c.handleConfigUpdate(payload)
	default:
		c.log.Warnw("dispatching unhandled command payload type", "senderSessionId", cmd.SenderSessionID)
	}
}

func (c *Core) handleConfigUpdate(update command.ConfigUpdate) {
	if update.MoveSpeed != nil {
		c.cfg.MoveSpeed = *update.MoveSpeed
	}
	if update.AOIUpdateInterval != nil {
		c.cfg.AOIUpdateInterval = *update.AOIUpdateInterval
		c.aoiCache = aoi.New(c.cfg.AOIUpdateInterval, c.cfg.AOIPositionThreshold)
	}
	if update.AOIPositionThresh != nil {
		c.cfg.AOIPositionThreshold = *update.AOIPositionThresh
		c.aoiCache = aoi.New(c.cfg.AOIUpdateInterval, c.cfg.AOIPositionThreshold)
	}
	c.log.Infow("applied config update", "moveSpeed", c.cfg.MoveSpeed, "aoiUpdateInterval", c.cfg.AOIUpdateInterval, "aoiPositionThreshold", c.cfg.AOIPositionThreshold)
}

func (c *Core) addToBatch(id world.PlayerID, frame []byte) {
	c.batches[id] = append(c.batches[id], frame)
}

// flushBatches sends each player's accumulated per-tick frames in one
// SendBatch call and clears every batch (spec.md §4.12 step 5).
func (c *Core) flushBatches() {
	for id, frames := range c.batches {
		delete(c.batches, id)
		if len(frames) == 0 {
			continue
		}
		p, ok := c.world.GetPlayer(id)
		if !ok {
			continue
		}
		sess, ok := c.registry.Get(p.SessionID)
		if !ok {
			continue
		}
		sess.SendBatch(frames)
	}
}

func (c *Core) reportAndSweep() {
	hitRatio := c.aoiCache.HitRatio()
	c.aoiCache.ResetCounters()

	snapshot := c.metrics.report(c.tickNumber, c.cfg.StatsReportInterval, hitRatio, c.registry.Count(), c.world.PlayerCount())
	c.lastReportMu.Lock()
	c.lastReport = snapshot
	c.lastReportMu.Unlock()

	c.log.Infow("simulation stats",
		"tick", snapshot.TickNumber,
		"avgCommandMicros", snapshot.AvgCommandProcessingMicros,
		"avgWorldUpdateMicros", snapshot.AvgWorldUpdateMicros,
		"avgSnapshotMicros", snapshot.AvgSnapshotMicros,
		"aoiHitRatio", snapshot.AOICacheHitRatio,
		"sessions", snapshot.SessionCount,
		"players", snapshot.PlayerCount,
	)

	c.sweepInactivePlayers()
}

// sweepInactivePlayers implements SPEC_FULL.md §3.2: players inactive for
// longer than ReconnectTimeout are removed from the world map entirely.
// They are already absent from the spatial index (removed at disconnect
// time in handlePlayerDisconnect).
func (c *Core) sweepInactivePlayers() {
	now := time.Now()
	var swept int
	for _, p := range c.world.GetAllPlayers() {
		if p.Active {
			continue
		}
		if now.Sub(p.DisconnectTime) > c.cfg.ReconnectTimeout {
			c.world.RemovePlayer(p.ID)
			c.aoiCache.Remove(aoi.PlayerID(p.ID))
			swept++
		}
	}
	if swept > 0 {
		c.log.Infow("swept inactive players", "count", swept, "tick", c.tickNumber)
	}
}

// playerInfo projects a world.Player into the wire PlayerInfo shape,
// resolving the display name via the bounded name cache (spec.md §4.13).
func (c *Core) playerInfo(p *world.Player) protocol.PlayerInfo {
	name := p.Name
	if name == "" {
		name = c.names.Name(uint64(p.ID))
	}
	return protocol.PlayerInfo{
		PlayerId: uint64(p.ID),
		Name:     name,
		X:        p.Position.X,
		Y:        p.Position.Y,
		HP:       p.HP,
		MaxHP:    p.MaxHP,
	}
}
