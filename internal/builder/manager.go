package builder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formcraft/internal/engine"
	"formcraft/internal/form"
)

// Manager tracks the open builder sessions and evicts idle ones.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	eval        engine.ExpressionEvaluator
	logger      *zap.Logger
	now         func() time.Time

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewManager(idleTimeout time.Duration, eval engine.ExpressionEvaluator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		eval:        eval,
		logger:      logger,
		now:         time.Now,
	}
}

// Create opens a session over f (nil for a new form).
func (m *Manager) Create(f *form.Form) *Session {
	s := NewSession(uuid.New().String(), f, m.eval, m.logger)
	s.touch(m.now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session and marks it active.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many were closed.
func (m *Manager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Start begins the background sweep.
func (m *Manager) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.ticker = time.NewTicker(interval)
	m.done = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.ticker.C, m.done)
	m.logger.Info("Session janitor started", zap.Duration("interval", interval), zap.Duration("idle_timeout", m.idleTimeout))
}

// Stop halts the background sweep and waits for it to exit.
func (m *Manager) Stop() {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	m.wg.Wait()
}

func (m *Manager) run(tick <-chan time.Time, done <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-tick:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("Evicted idle builder sessions", zap.Int("count", n))
			}
		}
	}
}
