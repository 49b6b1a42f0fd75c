package database

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/shared/config"
	"canopy/internal/shared/logger"
)

type fakeFactory struct {
	mu      sync.Mutex
	created int
	closed  int
}

func (f *fakeFactory) make(pool *SessionPool) sessionFactory {
	return func(_ context.Context, tenantID uuid.UUID) (*Session, error) {
		f.mu.Lock()
		f.created++
		f.mu.Unlock()
		return &Session{
			tenantID: tenantID,
			lastUsed: time.Now(),
			pool:     pool,
			closeFn: func() error {
				f.mu.Lock()
				f.closed++
				f.mu.Unlock()
				return nil
			},
		}, nil
	}
}

func (f *fakeFactory) counts() (created, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.closed
}

func newTestPool(t *testing.T, cfg *config.SessionPoolConfig) (*SessionPool, *fakeFactory) {
	t.Helper()
	if cfg == nil {
		cfg = &config.SessionPoolConfig{}
	}
	f := &fakeFactory{}
	p := newSessionPool(cfg, logger.NewLogger())
	p.factory = f.make(p)
	t.Cleanup(p.Close)
	return p, f
}

func TestSessionPoolAcquireRequiresTenant(t *testing.T) {
	p, _ := newTestPool(t, nil)

	_, err := p.Acquire(context.Background(), uuid.Nil)
	assert.Error(t, err)
}

func TestSessionPoolReusesIdleSession(t *testing.T) {
	p, f := newTestPool(t, nil)
	tenantID := uuid.New()

	s1, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)
	s1.Release()

	s2, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	created, _ := f.counts()
	assert.Equal(t, 1, created)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestSessionPoolNeverMixesTenants(t *testing.T) {
	p, _ := newTestPool(t, nil)

	tenants := make([]uuid.UUID, 5)
	for i := range tenants {
		tenants[i] = uuid.New()
	}

	// Seed idle sessions for every tenant so reuse is exercised.
	for _, id := range tenants {
		s, err := p.Acquire(context.Background(), id)
		require.NoError(t, err)
		s.Release()
	}

	var wrong atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				want := tenants[(seed+i)%len(tenants)]
				s, err := p.Acquire(context.Background(), want)
				if err != nil {
					wrong.Add(1)
					return
				}
				if s.TenantID() != want {
					wrong.Add(1)
				}
				s.Release()
			}
		}(g)
	}
	wg.Wait()

	assert.Zero(t, wrong.Load(), "a session configured for one tenant was handed to another")
}

func TestSessionPoolDiscardsWhenFull(t *testing.T) {
	p, f := newTestPool(t, &config.SessionPoolConfig{MaxSessions: 1, MaxIdlePerKey: 1})
	tenantA := uuid.New()
	tenantB := uuid.New()

	sa, err := p.Acquire(context.Background(), tenantA)
	require.NoError(t, err)
	sb, err := p.Acquire(context.Background(), tenantB)
	require.NoError(t, err)

	sa.Release()
	sb.Release() // pool is full, must be closed instead of kept

	_, closed := f.counts()
	assert.Equal(t, 1, closed)
	assert.Equal(t, uint64(1), p.Stats().Discards)
	assert.Equal(t, 1, p.Stats().Idle)
}

func TestSessionPoolPerTenantIdleCap(t *testing.T) {
	p, f := newTestPool(t, &config.SessionPoolConfig{MaxSessions: 10, MaxIdlePerKey: 2})
	tenantID := uuid.New()

	sessions := make([]*Session, 4)
	for i := range sessions {
		s, err := p.Acquire(context.Background(), tenantID)
		require.NoError(t, err)
		sessions[i] = s
	}
	for _, s := range sessions {
		s.Release()
	}

	_, closed := f.counts()
	assert.Equal(t, 2, closed)
	assert.Equal(t, 2, p.Stats().Idle)
}

func TestSessionPoolSweepEvictsStaleSessions(t *testing.T) {
	p, f := newTestPool(t, &config.SessionPoolConfig{MaxIdleSeconds: 60})
	tenantID := uuid.New()

	s, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)
	s.Release()

	p.sweep(time.Now().Add(2 * time.Minute))

	_, closed := f.counts()
	assert.Equal(t, 1, closed)
	assert.Equal(t, uint64(1), p.Stats().Evictions)
	assert.Zero(t, p.Stats().Idle)
}

func TestSessionPoolAcquireSkipsStaleIdleSession(t *testing.T) {
	p, f := newTestPool(t, &config.SessionPoolConfig{MaxIdleSeconds: 60})
	tenantID := uuid.New()

	s1, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)
	s1.Release()
	s1.lastUsed = time.Now().Add(-2 * time.Minute)

	s2, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)

	created, closed := f.counts()
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, closed)
	assert.Equal(t, uint64(1), p.Stats().Evictions)
}

func TestSessionReleaseIsIdempotent(t *testing.T) {
	p, _ := newTestPool(t, nil)
	tenantID := uuid.New()

	s, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)
	s.Release()
	s.Release()

	assert.Equal(t, 1, p.Stats().Idle)
}

func TestSessionPoolReleaseAll(t *testing.T) {
	p, f := newTestPool(t, nil)

	for i := 0; i < 3; i++ {
		s, err := p.Acquire(context.Background(), uuid.New())
		require.NoError(t, err)
		s.Release()
	}
	require.Equal(t, 3, p.Stats().Idle)

	p.ReleaseAll()

	_, closed := f.counts()
	assert.Equal(t, 3, closed)
	assert.Zero(t, p.Stats().Idle)
}

func TestSessionPoolCloseStopsPooling(t *testing.T) {
	p, f := newTestPool(t, nil)
	tenantID := uuid.New()

	s, err := p.Acquire(context.Background(), tenantID)
	require.NoError(t, err)

	p.Close()
	s.Release()

	_, closed := f.counts()
	assert.Equal(t, 1, closed)
	assert.Zero(t, p.Stats().Idle)
}
