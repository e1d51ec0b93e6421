package protocol

import "encoding/json"

// EncodeEnvelope marshals body, wraps it in an Envelope tagged with id, and
// marshals the envelope — the non-pooled path used outside the simulation
// core (login replies, chat broadcasts). Packets built inside
// internal/simcore (world snapshots and zone-entered/joined/left events) use
// its pooled builders instead (spec.md §4.13).
func EncodeEnvelope(id PacketId, body interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{PacketId: id, Body: raw})
}
