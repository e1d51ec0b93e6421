// Package frame implements the wire-level length-prefix codec: a
// little-endian u32 length followed by that many opaque payload bytes.
// Grounded on spec.md §4.1; the length-prefixed-over-TCP idiom itself
// matches other_examples/mas-bandwidth-fps__world_database.go and
// other_examples/dachshu-FunctionalProgrammingTest__viewServer.go, both of
// which frame TCP messages with encoding/binary.LittleEndian.
package frame

import (
	"encoding/binary"
	"fmt"
)

const (
	HeaderSize = 4

	// MaxPayloadSize is the largest single frame payload accepted, spec.md §4.1.
	MaxPayloadSize = 100000

	// MaxBatchBytes caps a single SendBatch flush, spec.md §4.1.
	MaxBatchBytes = 64 * 1024 * 1024
)

// ErrPayloadTooLarge is returned when a decoded or batched length exceeds
// the bounds the wire format allows.
type ErrPayloadTooLarge struct {
	Length int
	Limit  int
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("frame: length %d exceeds limit %d", e.Length, e.Limit)
}

// ErrEmptyPayload is returned for a zero-length frame.
var ErrEmptyPayload = fmt.Errorf("frame: length must be > 0")

// Encode writes the length-prefixed frame for body into a single buffer.
func Encode(body []byte) ([]byte, error) {
	if err := validateLength(len(body)); err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(buf[:HeaderSize], uint32(len(body)))
	copy(buf[HeaderSize:], body)
	return buf, nil
}

// DecodeHeader parses the 4-byte little-endian length prefix and validates it
// against the protocol bounds.
func DecodeHeader(header [HeaderSize]byte) (int, error) {
	length := int(binary.LittleEndian.Uint32(header[:]))
	if err := validateLength(length); err != nil {
		return 0, err
	}
	return length, nil
}

func validateLength(length int) error {
	if length <= 0 {
		return ErrEmptyPayload
	}
	if length > MaxPayloadSize {
		return &ErrPayloadTooLarge{Length: length, Limit: MaxPayloadSize}
	}
	return nil
}

// EncodeBatch concatenates (len||body) pairs for every entry in bodies into
// one buffer, capped at MaxBatchBytes total.
func EncodeBatch(bodies [][]byte) ([]byte, error) {
	total := 0
	for _, b := range bodies {
		if err := validateLength(len(b)); err != nil {
			return nil, err
		}
		total += HeaderSize + len(b)
	}
	if total > MaxBatchBytes {
		return nil, &ErrPayloadTooLarge{Length: total, Limit: MaxBatchBytes}
	}

	buf := make([]byte, 0, total)
	for _, b := range bodies {
		var hdr [HeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[:], uint32(len(b)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, b...)
	}
	return buf, nil
}
