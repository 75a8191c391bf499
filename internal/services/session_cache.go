// internal/services/session_cache.go
package services

import (
	"sync"
	"time"
)

const (
	// DefaultSessionTTL is how long a successful full validation lets the
	// same IP skip re-validation on the fast path.
	DefaultSessionTTL = 24 * time.Hour

	// DefaultSweepInterval bounds memory even when expired entries are
	// never read again.
	DefaultSweepInterval = 10 * time.Minute
)

type ipSession struct {
	key       string
	expiresAt time.Time
}

// SessionInfo is the admin-facing view of one live session.
type SessionInfo struct {
	IP         string    `json:"ip"`
	LicenseKey string    `json:"license_key"`
	ExpiresAt  time.Time `json:"expires_at"`
	ExpiresIn  int64     `json:"expires_in"` // seconds
}

// SessionCache maps client IPs to already-validated license keys for a
// bounded time. Entries expire lazily on read and via a periodic sweep;
// a new put for the same IP replaces the old entry and resets the TTL.
type SessionCache struct {
	mu       sync.Mutex
	sessions map[string]ipSession
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSessionCache(ttl, sweepInterval time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	c := &SessionCache{
		sessions: make(map[string]ipSession),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	if sweepInterval > 0 {
		go c.sweep(sweepInterval)
	}

	return c
}

func (c *SessionCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for ip, s := range c.sessions {
				if now.After(s.expiresAt) {
					delete(c.sessions, ip)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func (c *SessionCache) Put(ip, key string) {
	c.PutWithTTL(ip, key, c.ttl)
}

func (c *SessionCache) PutWithTTL(ip, key string, ttl time.Duration) {
	if ip == "" {
		return
	}
	c.mu.Lock()
	c.sessions[ip] = ipSession{key: key, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get returns the cached license key and remaining TTL. An expired entry is
// removed and reported as absent.
func (c *SessionCache) Get(ip string) (string, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[ip]
	if !ok {
		return "", 0, false
	}

	remaining := s.expiresAt.Sub(c.now())
	if remaining <= 0 {
		delete(c.sessions, ip)
		return "", 0, false
	}

	return s.key, remaining, true
}

func (c *SessionCache) Delete(ip string) {
	c.mu.Lock()
	delete(c.sessions, ip)
	c.mu.Unlock()
}

func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Snapshot lists live sessions for the admin overview.
func (c *SessionCache) Snapshot() []SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	infos := make([]SessionInfo, 0, len(c.sessions))
	for ip, s := range c.sessions {
		if now.After(s.expiresAt) {
			continue
		}
		infos = append(infos, SessionInfo{
			IP:         ip,
			LicenseKey: s.key,
			ExpiresAt:  s.expiresAt,
			ExpiresIn:  int64(s.expiresAt.Sub(now) / time.Second),
		})
	}
	return infos
}

func (c *SessionCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
