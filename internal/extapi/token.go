package extapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshMargin forces a refresh when a credential is within this much of its
// expiry, so an almost-expired token is never sent upstream.
const refreshMargin = time.Minute

// loginFunc performs one credential round trip and returns the bearer token
// plus its expiry. A zero expiry means the provider gave no hint and the
// token is cached for the life of the process.
type loginFunc func(ctx context.Context) (token string, expiresAt time.Time, err error)

// tokenCache is the process-wide bearer credential cache.
//
// Concurrent callers finding the cache stale are coalesced through a
// singleflight group: exactly one performs the login round trip, the rest
// wait and reuse its result.
type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	sf singleflight.Group
}

// get returns a valid bearer token, refreshing through login when the cached
// one is missing or within refreshMargin of expiry.
func (c *tokenCache) get(ctx context.Context, login loginFunc) (string, error) {
	c.mu.RLock()
	token, ok := c.token, c.valid(time.Now())
	c.mu.RUnlock()
	if ok {
		return token, nil
	}

	v, err, _ := c.sf.Do("token", func() (any, error) {
		// Another waiter may have refreshed while we queued.
		c.mu.RLock()
		token, ok := c.token, c.valid(time.Now())
		c.mu.RUnlock()
		if ok {
			return token, nil
		}

		fresh, expiresAt, err := login(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.token = fresh
		c.expiresAt = expiresAt
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// valid reports whether the cached token is usable at time now.
// Callers must hold at least a read lock.
func (c *tokenCache) valid(now time.Time) bool {
	if c.token == "" {
		return false
	}
	if c.expiresAt.IsZero() {
		// No expiry hint from the provider: session-lifetime cache.
		return true
	}
	return c.expiresAt.After(now.Add(refreshMargin))
}

// invalidate drops the cached token so the next call logs in again.
func (c *tokenCache) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
