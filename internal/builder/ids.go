package builder

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator hands out field ids derived from the millisecond clock. Two ids
// requested within the same millisecond, or after the clock steps backwards,
// are bumped so that every id is strictly greater than the previous one.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe records an id that already exists so that later ids never collide
// with it. Non-numeric ids cannot collide and are ignored.
func (g *IDGenerator) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if n > g.last {
		g.last = n
	}
	g.mu.Unlock()
}
