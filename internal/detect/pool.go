package detect

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultPoolSize is the number of inference sessions created at load.
	DefaultPoolSize = 2
	acquireTimeout  = 5 * time.Second
)

// sessionPool hands out exclusive inference sessions to connection loops.
// ONNX Runtime sessions are not safe for concurrent Run calls, so every
// invocation goes through acquire/release.
type sessionPool struct {
	sessions chan Invoker
	size     int
	factory  func() (Invoker, error)
	timeout  time.Duration

	mu      sync.Mutex
	closed  bool
	metrics poolMetrics
}

type poolMetrics struct {
	mu              sync.Mutex
	inUse           int
	totalAcquired   int64
	totalReleased   int64
	acquireFailures int64
}

// PoolStats is a point-in-time snapshot of session pool usage, reported on
// the health endpoint.
type PoolStats struct {
	Size            int   `json:"size"`
	InUse           int   `json:"in_use"`
	TotalAcquired   int64 `json:"total_acquired"`
	TotalReleased   int64 `json:"total_released"`
	AcquireFailures int64 `json:"acquire_failures"`
}

func newSessionPool(factory func() (Invoker, error), size int) (*sessionPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	pool := &sessionPool{
		sessions: make(chan Invoker, size),
		size:     size,
		factory:  factory,
		timeout:  acquireTimeout,
	}

	for i := 0; i < size; i++ {
		session, err := factory()
		if err != nil {
			pool.destroy()
			return nil, fmt.Errorf("initialize session %d: %w", i, err)
		}
		pool.sessions <- session
	}
	return pool, nil
}

func (p *sessionPool) acquire(ctx context.Context) (Invoker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("session pool is closed")
	}
	p.mu.Unlock()

	select {
	case session := <-p.sessions:
		// A nil receive means the channel was closed by destroy after
		// the closed check above.
		if session == nil {
			return nil, fmt.Errorf("session pool is closed")
		}
		p.metrics.mu.Lock()
		p.metrics.inUse++
		p.metrics.totalAcquired++
		p.metrics.mu.Unlock()
		return session, nil
	case <-time.After(p.timeout):
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *sessionPool) release(session Invoker) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		session.Destroy()
		return
	}

	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalReleased++
	p.metrics.mu.Unlock()

	p.sessions <- session
}

func (p *sessionPool) stats() PoolStats {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()
	return PoolStats{
		Size:            p.size,
		InUse:           p.metrics.inUse,
		TotalAcquired:   p.metrics.totalAcquired,
		TotalReleased:   p.metrics.totalReleased,
		AcquireFailures: p.metrics.acquireFailures,
	}
}

func (p *sessionPool) destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.sessions)
	for session := range p.sessions {
		session.Destroy()
	}
}
