package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// ULID generator for job and document IDs: 26-character Crockford
// Base32 strings with a 48-bit millisecond timestamp prefix, so IDs
// sort by creation time.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewID returns a fresh ULID.
func NewID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// Timestamp in first 6 bytes (big-endian 48-bit).
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	// Random in remaining 10 bytes, with a sequence counter in bytes
	// 6-7 to keep IDs unique within the same millisecond.
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeBase32(b)
}

// encodeBase32 encodes 128 bits as 26 Crockford Base32 characters,
// walking the bytes 5 bits at a time from the top.
func encodeBase32(b [16]byte) string {
	var out [26]byte
	// 130 bit positions are consumed; the first character carries only
	// the top 3 bits of the value, matching the canonical ULID layout.
	bitPos := -2
	for i := range out {
		var v byte
		for j := 0; j < 5; j++ {
			v <<= 1
			pos := bitPos + j
			if pos >= 0 && b[pos/8]&(1<<(7-pos%8)) != 0 {
				v |= 1
			}
		}
		out[i] = crockford[v]
		bitPos += 5
	}
	return string(out[:])
}
