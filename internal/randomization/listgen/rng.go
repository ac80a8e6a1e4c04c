package listgen

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RNG is the randomness the generator consumes. *rand.Rand satisfies it.
type RNG interface {
	IntN(n int) int
}

// NewSecureRNG returns a ChaCha8 stream keyed from the operating system CSPRNG.
// Safe for concurrent use.
func NewSecureRNG() RNG {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand.Read never returns an error on supported platforms.
		panic("listgen: crypto seed: " + err.Error())
	}
	return &lockedRNG{rnd: rand.New(rand.NewChaCha8(seed))}
}

// NewSeededRNG returns a deterministic stream for tests and reproducible previews.
func NewSeededRNG(seed uint64) RNG {
	var key [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(key[i*8:], seed+uint64(i))
	}
	return &lockedRNG{rnd: rand.New(rand.NewChaCha8(key))}
}

type lockedRNG struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (r *lockedRNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}
