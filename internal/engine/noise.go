package engine

import (
	"math/rand"
	"sync"
	"time"
)

// NoiseSource produces the per-tick random price perturbation. It is the
// only source of randomness in the engine; substitute it to make ticks
// fully deterministic.
type NoiseSource interface {
	// Uniform returns a value uniformly distributed in [-rangePct, +rangePct].
	Uniform(rangePct float64) float64
}

type randNoise struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandNoise creates the default pseudo-random noise source. A zero seed
// falls back to the current time.
func NewRandNoise(seed int64) NoiseSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randNoise{r: rand.New(rand.NewSource(seed))}
}

func (n *randNoise) Uniform(rangePct float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return (n.r.Float64()*2 - 1) * rangePct
}
