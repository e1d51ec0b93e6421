package frame

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body := []byte("hello world")
	encoded, err := Encode(body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) != HeaderSize+len(body) {
		t.Fatalf("unexpected encoded length %d", len(encoded))
	}
	var hdr [HeaderSize]byte
	copy(hdr[:], encoded[:HeaderSize])
	length, err := DecodeHeader(hdr)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if length != len(body) {
		t.Fatalf("decoded length = %d, want %d", length, len(body))
	}
	if !bytes.Equal(encoded[HeaderSize:], body) {
		t.Fatalf("decoded body mismatch")
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestEncodeRejectsOversize(t *testing.T) {
	big := make([]byte, MaxPayloadSize+1)
	if _, err := Encode(big); err == nil {
		t.Fatalf("expected error for oversize payload")
	}
}

func TestDecodeHeaderRejectsZeroLength(t *testing.T) {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], 0)
	if _, err := DecodeHeader(hdr); err == nil {
		t.Fatalf("expected error for zero length")
	}
}

func TestEncodeBatchOrderingAndPrefixes(t *testing.T) {
	bodies := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	batch, err := EncodeBatch(bodies)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	offset := 0
	for i, want := range bodies {
		var hdr [HeaderSize]byte
		copy(hdr[:], batch[offset:offset+HeaderSize])
		length, err := DecodeHeader(hdr)
		if err != nil {
			t.Fatalf("entry %d: DecodeHeader: %v", i, err)
		}
		offset += HeaderSize
		got := batch[offset : offset+length]
		if !bytes.Equal(got, want) {
			t.Fatalf("entry %d: got %q, want %q", i, got, want)
		}
		offset += length
	}
	if offset != len(batch) {
		t.Fatalf("batch has trailing bytes: offset=%d len=%d", offset, len(batch))
	}
}

func TestEncodeBatchRejectsOversizeTotal(t *testing.T) {
	body := make([]byte, MaxPayloadSize)
	bodies := make([][]byte, MaxBatchBytes/MaxPayloadSize+2)
	for i := range bodies {
		bodies[i] = body
	}
	if _, err := EncodeBatch(bodies); err == nil {
		t.Fatalf("expected error for oversize batch")
	}
}
