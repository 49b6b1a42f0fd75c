package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"canopy/internal/shared/config"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
)

// Session is a database handle whose underlying connection carries the
// tenant's id in the app.current_tenant_id session parameter. Between
// Acquire and Release the session is exclusively owned by one request;
// every query on it is filtered by the RLS policies for that tenant.
type Session struct {
	tenantID uuid.UUID
	db       *gorm.DB
	lastUsed time.Time
	pool     *SessionPool
	closeFn  func() error
	released bool
	mu       sync.Mutex
}

// TenantID returns the tenant this session is configured for.
func (s *Session) TenantID() uuid.UUID { return s.tenantID }

// DB returns the gorm handle bound to the tenant-configured connection.
func (s *Session) DB() *gorm.DB { return s.db }

// Release returns the session to the pool, or closes it when the pool has
// no room. Safe to call from a deferred teardown even after an earlier
// explicit release.
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if s.pool != nil {
		s.pool.release(s)
		return
	}
	s.close()
}

func (s *Session) close() {
	if s.closeFn == nil {
		return
	}
	if err := s.closeFn(); err != nil {
		logger.Warn("failed to close tenant session", "tenant_id", s.tenantID, "error", err)
	}
}

// Verify checks that the connection's session parameter still names this
// session's tenant. Used by diagnostics; a mismatch means the session must
// be discarded, never reused.
func (s *Session) Verify(ctx context.Context) error {
	var current string
	err := s.db.WithContext(ctx).
		Raw("SELECT COALESCE(current_setting(?, true), '')", constants.TenantSessionParam).
		Scan(&current).Error
	if err != nil {
		return fmt.Errorf("failed to read session parameter: %w", err)
	}
	if current != s.tenantID.String() {
		return fmt.Errorf("session parameter mismatch: have %q, want %q", current, s.tenantID)
	}
	return nil
}

// sessionFactory creates a configured session for a tenant. Tests inject
// fakes here; production uses the pinned-connection factory below.
type sessionFactory func(ctx context.Context, tenantID uuid.UUID) (*Session, error)

// PoolStats is a point-in-time snapshot for diagnostics.
type PoolStats struct {
	Idle      int            `json:"idle"`
	PerTenant map[string]int `json:"per_tenant"`
	Hits      uint64         `json:"hits"`
	Misses    uint64         `json:"misses"`
	Evictions uint64         `json:"evictions"`
	Discards  uint64         `json:"discards"`
}

// SessionPool keeps idle tenant-configured sessions so repeat requests for
// the same tenant skip the connection pin and SET round-trip. The pool is
// shared across request goroutines; all structural mutation happens under
// one mutex. Handoff needs no further synchronization because a session is
// owned exclusively between Acquire and Release.
//
// The pool never blocks and never fails on exhaustion: when full it hands
// out unpooled sessions that are closed on release.
type SessionPool struct {
	mu       sync.Mutex
	idle     map[uuid.UUID][]*Session
	total    int
	stopped  bool
	stopCh   chan struct{}
	stopOnce sync.Once

	maxSessions   int
	maxIdlePerKey int
	maxIdleAge    time.Duration
	sweepInterval time.Duration

	factory sessionFactory
	log     logger.Interface

	hits      uint64
	misses    uint64
	evictions uint64
	discards  uint64
}

// NewSessionPool builds a pool over the application-role connection. Each
// pooled session pins one connection from base and sets the tenant session
// parameter on it via a parameterized set_config call.
func NewSessionPool(base *gorm.DB, cfg *config.SessionPoolConfig, log logger.Interface) (*SessionPool, error) {
	sqlDB, err := base.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	p := newSessionPool(cfg, log)
	p.factory = func(ctx context.Context, tenantID uuid.UUID) (*Session, error) {
		return newPinnedSession(ctx, sqlDB, tenantID, p)
	}
	p.startSweeper()
	return p, nil
}

func newSessionPool(cfg *config.SessionPoolConfig, log logger.Interface) *SessionPool {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 64
	}
	maxIdlePerKey := cfg.MaxIdlePerKey
	if maxIdlePerKey <= 0 {
		maxIdlePerKey = 4
	}
	maxIdleAge := time.Duration(cfg.MaxIdleSeconds) * time.Second
	if maxIdleAge <= 0 {
		maxIdleAge = 5 * time.Minute
	}
	sweepInterval := time.Duration(cfg.SweepIntervalMS) * time.Millisecond
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}

	return &SessionPool{
		idle:          make(map[uuid.UUID][]*Session),
		stopCh:        make(chan struct{}),
		maxSessions:   maxSessions,
		maxIdlePerKey: maxIdlePerKey,
		maxIdleAge:    maxIdleAge,
		sweepInterval: sweepInterval,
		log:           log,
	}
}

func newPinnedSession(ctx context.Context, base *sql.DB, tenantID uuid.UUID, pool *SessionPool) (*Session, error) {
	conn, err := base.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin connection: %w", err)
	}

	// set_config with a parameterized value; never interpolate the id.
	if _, err := conn.ExecContext(ctx,
		"SELECT set_config($1, $2, false)",
		constants.TenantSessionParam, tenantID.String()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set tenant session parameter: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return &Session{
		tenantID: tenantID,
		db:       gdb,
		lastUsed: time.Now(),
		pool:     pool,
		closeFn: func() error {
			// Clear the parameter before the pinned connection goes back to
			// database/sql; a later pin for another tenant must not inherit it.
			resetCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := conn.ExecContext(resetCtx,
				"SELECT set_config($1, '', false)", constants.TenantSessionParam); err != nil {
				// The connection is poisoned; closing it drops it from the
				// underlying pool, which is the safe outcome.
				conn.Close()
				return fmt.Errorf("failed to reset tenant session parameter: %w", err)
			}
			return conn.Close()
		},
	}, nil
}

// Acquire returns a session configured for the tenant: a pooled idle one
// when available, a freshly configured one otherwise.
func (p *SessionPool) Acquire(ctx context.Context, tenantID uuid.UUID) (*Session, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("cannot acquire session without a tenant")
	}

	p.mu.Lock()
	for {
		sessions := p.idle[tenantID]
		if len(sessions) == 0 {
			break
		}
		s := sessions[len(sessions)-1]
		p.idle[tenantID] = sessions[:len(sessions)-1]
		p.total--

		if time.Since(s.lastUsed) > p.maxIdleAge {
			p.evictions++
			poolEvictions.Inc()
			p.mu.Unlock()
			s.close()
			p.mu.Lock()
			continue
		}

		p.hits++
		poolHits.Inc()
		poolIdleSessions.Set(float64(p.total))
		p.mu.Unlock()

		s.mu.Lock()
		s.released = false
		s.mu.Unlock()
		return s, nil
	}
	p.misses++
	poolMisses.Inc()
	p.mu.Unlock()

	s, err := p.factory(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// release returns a session to the idle set, or closes it when the pool is
// full or stopped.
func (p *SessionPool) release(s *Session) {
	p.mu.Lock()
	if p.stopped || p.total >= p.maxSessions || len(p.idle[s.tenantID]) >= p.maxIdlePerKey {
		p.discards++
		poolDiscards.Inc()
		p.mu.Unlock()
		s.close()
		return
	}
	s.lastUsed = time.Now()
	p.idle[s.tenantID] = append(p.idle[s.tenantID], s)
	p.total++
	poolIdleSessions.Set(float64(p.total))
	p.mu.Unlock()
}

// ReleaseAll drains every idle session. Used at shutdown and by the
// administrative cache-invalidation path.
func (p *SessionPool) ReleaseAll() {
	p.mu.Lock()
	drained := make([]*Session, 0, p.total)
	for tenantID, sessions := range p.idle {
		drained = append(drained, sessions...)
		delete(p.idle, tenantID)
	}
	p.total = 0
	poolIdleSessions.Set(0)
	p.mu.Unlock()

	for _, s := range drained {
		s.close()
	}
}

// Close stops the sweeper and drains the pool.
func (p *SessionPool) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.ReleaseAll()
}

// Stats returns a snapshot for the connection monitor.
func (p *SessionPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	perTenant := make(map[string]int, len(p.idle))
	for tenantID, sessions := range p.idle {
		if len(sessions) > 0 {
			perTenant[tenantID.String()] = len(sessions)
		}
	}
	return PoolStats{
		Idle:      p.total,
		PerTenant: perTenant,
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
		Discards:  p.discards,
	}
}

func (p *SessionPool) startSweeper() {
	go func() {
		ticker := time.NewTicker(p.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.sweep(time.Now())
			}
		}
	}()
}

// sweep evicts idle sessions older than maxIdleAge.
func (p *SessionPool) sweep(now time.Time) {
	p.mu.Lock()
	var expired []*Session
	for tenantID, sessions := range p.idle {
		kept := sessions[:0]
		for _, s := range sessions {
			if now.Sub(s.lastUsed) > p.maxIdleAge {
				expired = append(expired, s)
				p.total--
				p.evictions++
				poolEvictions.Inc()
			} else {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(p.idle, tenantID)
		} else {
			p.idle[tenantID] = kept
		}
	}
	poolIdleSessions.Set(float64(p.total))
	p.mu.Unlock()

	if len(expired) > 0 && p.log != nil {
		p.log.Debugw("evicted idle tenant sessions", "count", len(expired))
	}
	for _, s := range expired {
		s.close()
	}
}
