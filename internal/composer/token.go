package composer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the current freshness token. The token is opaque;
// it changes when the underlying data is considered refreshed, which
// invalidates every cache key derived from it.
type TokenSource interface {
	Token() string
}

// IntervalTokenSource rotates an opaque token on a fixed interval,
// checked lazily on Token. An optional onRotate hook runs after each
// rotation (e.g. to purge the result cache).
type IntervalTokenSource struct {
	mu       sync.Mutex
	interval time.Duration
	token    string
	issued   time.Time
	now      func() time.Time
	onRotate func()
}

// NewIntervalTokenSource creates a token source with the given rotation
// interval. A zero or negative interval never rotates automatically;
// Refresh still works.
func NewIntervalTokenSource(interval time.Duration, onRotate func()) *IntervalTokenSource {
	s := &IntervalTokenSource{
		interval: interval,
		now:      time.Now,
		onRotate: onRotate,
	}
	s.token = uuid.NewString()
	s.issued = s.now()
	return s
}

// Token returns the current token, rotating first if the interval has
// elapsed.
func (s *IntervalTokenSource) Token() string {
	s.mu.Lock()
	if s.interval > 0 && s.now().Sub(s.issued) >= s.interval {
		s.rotateLocked()
	}
	token := s.token
	s.mu.Unlock()
	return token
}

// Refresh forces a rotation, marking all cached data stale.
func (s *IntervalTokenSource) Refresh() {
	s.mu.Lock()
	s.rotateLocked()
	s.mu.Unlock()
}

func (s *IntervalTokenSource) rotateLocked() {
	s.token = uuid.NewString()
	s.issued = s.now()
	if s.onRotate != nil {
		// Hook runs under the lock; keep it cheap.
		s.onRotate()
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *IntervalTokenSource) SetNowFunc(now func() time.Time) { s.now = now }
