// Package ratelimit provides per-client token buckets and per-participant
// submission budgets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter rate-limits requests per client key using token buckets.
// A zero rate disables limiting.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry

	rps   rate.Limit
	burst int
	now   func() time.Time
}

// NewClientLimiter creates a limiter granting rps requests per second with
// the given burst to every client.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		clients: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (cl *ClientLimiter) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	e, ok := cl.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[key] = e
	}
	e.lastSeen = cl.now()
	return e.limiter
}

// Allow reports whether the client may make a request now.
func (cl *ClientLimiter) Allow(key string) bool {
	if cl.rps <= 0 {
		return true
	}
	return cl.get(key).AllowN(cl.now(), 1)
}

// Wait blocks until the client has a token, or ctx is cancelled.
func (cl *ClientLimiter) Wait(ctx context.Context, key string) error {
	if cl.rps <= 0 {
		return nil
	}
	if err := cl.get(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", key, err)
	}
	return nil
}

// Prune forgets clients idle for longer than idle and returns how many were
// removed.
func (cl *ClientLimiter) Prune(idle time.Duration) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cutoff := cl.now().Add(-idle)
	n := 0
	for k, e := range cl.clients {
		if e.lastSeen.Before(cutoff) {
			delete(cl.clients, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked clients.
func (cl *ClientLimiter) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}
