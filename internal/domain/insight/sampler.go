package insight

import (
	"math"
	"math/rand"
	"sync"

	"github.com/okian/eduquest/internal/domain/model"
)

const maxVariability = 10

// Sampler attaches an emotional variability reading to emotional answers that
// arrive without one. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a sampler seeded with seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // not used for security
}

// Attach returns e with a variability reading when it is an emotional answer
// lacking one. Other events are returned unchanged.
func (s *Sampler) Attach(e model.Event) model.Event {
	if !e.IsEmotional() || e.EmotionalVariability != nil {
		return e
	}
	s.mu.Lock()
	v := s.rng.Float64() * maxVariability
	s.mu.Unlock()
	v = math.Round(v*10) / 10
	e.EmotionalVariability = &v
	return e
}
