package agent

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
)

// StableSeed derives a reproducible 32-bit seed from its parts, joined with
// ":" and hashed with SHA-256. Unlike hash/maphash it is stable across
// processes, which resumed runs rely on.
func StableSeed(parts ...any) uint64 {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(strs, ":")))
	return uint64(binary.BigEndian.Uint32(sum[:4]))
}

// NewRand returns a PCG-backed generator seeded from StableSeed(parts...).
func NewRand(parts ...any) *rand.Rand {
	s := StableSeed(parts...)
	return rand.New(rand.NewPCG(s, s))
}
