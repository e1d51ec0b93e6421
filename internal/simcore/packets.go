package simcore

import (
	"bytes"
	"encoding/json"

	"github.com/ArsnDev/CppMMO/internal/protocol"
)

// encodeEnvelope is the pooled counterpart to protocol.EncodeEnvelope: the
// inner body is marshaled into a pooled buffer before the outer envelope is
// built, so the tick-hot caller, composeSnapshots in motion.go (one call per
// active player per tick), reuses a buffer for the inner body instead of
// allocating one every time (spec.md §4.13). The zone-entered, joined and
// left helpers below go through the same path.
func (c *Core) encodeEnvelope(id protocol.PacketId, body interface{}) ([]byte, error) {
	buf := c.builders.Get()
	defer c.builders.Put(buf)

	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, err
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	bodyCopy := make([]byte, len(raw))
	copy(bodyCopy, raw)

	return json.Marshal(protocol.Envelope{PacketId: id, Body: bodyCopy})
}

func (c *Core) encodeZoneEntered(zoneID int32, self protocol.PlayerInfo, near []protocol.PlayerInfo) ([]byte, error) {
	return c.encodeEnvelope(protocol.PacketSZoneEntered, protocol.SZoneEntered{
		ZoneId:      zoneID,
		Self:        self,
		NearPlayers: near,
	})
}

func (c *Core) encodePlayerJoined(info protocol.PlayerInfo) ([]byte, error) {
	return c.encodeEnvelope(protocol.PacketSPlayerJoined, protocol.SPlayerJoined{PlayerInfo: info})
}

func (c *Core) encodePlayerLeft(playerID uint64) ([]byte, error) {
	return c.encodeEnvelope(protocol.PacketSPlayerLeft, protocol.SPlayerLeft{PlayerId: playerID})
}

func (c *Core) encodeWorldSnapshot(tick uint64, serverTime int64, states []protocol.PlayerSnapshotState) ([]byte, error) {
	return c.encodeEnvelope(protocol.PacketSWorldSnapshot, protocol.SWorldSnapshot{
		TickNumber: tick,
		ServerTime: serverTime,
		States:     states,
	})
}
