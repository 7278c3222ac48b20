package auth

import (
	"sync"
	"time"
)

// Blacklist holds rotated refresh tokens until they would have
// expired anyway. In-process state is enough for this single-writer
// service; entries are pruned lazily on write.
type Blacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> natural expiry
}

func NewBlacklist() *Blacklist {
	return &Blacklist{tokens: make(map[string]time.Time)}
}

// Add marks a token revoked until exp.
func (b *Blacklist) Add(token string, exp time.Time) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, e := range b.tokens {
		if e.Before(now) {
			delete(b.tokens, t)
		}
	}
	b.tokens[token] = exp
}

// Contains reports whether the token has been revoked.
func (b *Blacklist) Contains(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.tokens[token]
	return ok && exp.After(time.Now())
}
