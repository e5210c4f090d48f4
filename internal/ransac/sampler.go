package ransac

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"runtime"
	"time"
)

// Sampler draws uniformly distributed indices in [0, n). *rand.Rand satisfies it.
// FitPlane draws from a single goroutine, implementations need not be safe for concurrent use.
type Sampler interface {
	Intn(n int) int
}

// NewSampler returns a deterministic sampler for the given seed
func NewSampler(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewEntropySampler returns a sampler seeded from the system entropy source
func NewEntropySampler() *rand.Rand {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return NewSampler(time.Now().UnixNano())
	}
	return NewSampler(int64(binary.LittleEndian.Uint64(buf[:])))
}

// draws three indices with replacement
func sampleTriple(s Sampler, n int) [3]int {
	return [3]int{s.Intn(n), s.Intn(n), s.Intn(n)}
}

func numWorkers(requested int) int {
	if requested < 1 {
		return runtime.NumCPU()
	}
	return requested
}
