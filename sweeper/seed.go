package sweeper

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a high-entropy seed from crypto/rand, suitable for
// initializing the pseudo-random source that places mines.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
