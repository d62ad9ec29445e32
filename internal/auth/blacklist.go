package auth

import (
	"sync"
	"time"
)

// blacklistCleanupInterval is how often expired revocations are purged.
const blacklistCleanupInterval = 1 * time.Minute

// Blacklist tracks revoked access tokens until their natural expiry.
//
// It is an in-process TTL map: entries survive only for the lifetime of
// this process and are lost on restart. Restart invalidates nothing —
// tokens still verify by signature — so the worst case after a restart
// is a logged-out token remaining valid until its short natural expiry.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Blacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time // token -> expiry
	done    chan struct{}
	once    sync.Once
}

// NewBlacklist creates a blacklist and starts its background cleanup loop.
// Call Close to stop the loop.
func NewBlacklist() *Blacklist {
	b := &Blacklist{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go b.cleanupLoop()
	return b
}

// Revoke marks a token as revoked for the given duration.
// Durations <= 0 are ignored: the token has already expired naturally.
func (b *Blacklist) Revoke(token string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	b.mu.Lock()
	b.entries[token] = time.Now().Add(ttl)
	b.mu.Unlock()
}

// IsRevoked reports whether a token is currently revoked.
// Expired entries are treated as not revoked even before cleanup runs.
func (b *Blacklist) IsRevoked(token string) bool {
	b.mu.RLock()
	expiry, ok := b.entries[token]
	b.mu.RUnlock()
	return ok && time.Now().Before(expiry)
}

// Len returns the number of tracked revocations, including entries
// awaiting cleanup. Used by the system metrics endpoint.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close stops the background cleanup loop. Safe to call multiple times.
func (b *Blacklist) Close() {
	b.once.Do(func() {
		close(b.done)
	})
}

// cleanupLoop periodically removes expired revocations.
func (b *Blacklist) cleanupLoop() {
	ticker := time.NewTicker(blacklistCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case now := <-ticker.C:
			b.mu.Lock()
			for token, expiry := range b.entries {
				if now.After(expiry) {
					delete(b.entries, token)
				}
			}
			b.mu.Unlock()
		}
	}
}
