package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Run IDs are ULIDs: 26-character Crockford Base32 strings with a 48-bit
// timestamp prefix, so IDs sort by creation time.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

func generateULID() string {
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
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[6:])
	// A sequence counter in bytes 6-7 keeps IDs unique within one ms.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeBase32(b)
}

// encodeBase32 renders 128 bits as 26 Crockford characters, 5 bits per
// character with a 3-bit leading group.
func encodeBase32(b [16]byte) string {
	var out [26]byte
	bitPos := 128
	for i := 25; i >= 0; i-- {
		width := 5
		if bitPos < 5 {
			width = bitPos
		}
		bitPos -= width
		out[i] = crockford[extractBits(b, bitPos, width)]
	}
	return string(out[:])
}

func extractBits(b [16]byte, start, width int) byte {
	var v byte
	for i := start; i < start+width; i++ {
		v = v<<1 | (b[i/8]>>(7-i%8))&1
	}
	return v
}
