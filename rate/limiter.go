// Package rate keeps a token-bucket limiter per client id and evicts
// entries that go idle.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	Expiry   int
	Burst    int
	LimitRPS float64
	clients  map[string]*clientLimiter
	mu       sync.RWMutex
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter builds a limiter allowing limitRPS requests per second with
// the given burst, forgetting clients idle for expiry minutes.
func NewLimiter(burst int, expiry int, limitRPS float64) *Limiter {
	lm := &Limiter{
		Expiry:   expiry,
		LimitRPS: limitRPS,
		Burst:    burst,
		clients:  make(map[string]*clientLimiter),
	}
	go lm.sweep()
	return lm
}

// Check reports whether the client may proceed, creating its bucket on
// first sight.
func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.LimitRPS), l.Burst)}
		l.clients[id] = cl
	}

	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

// sweep drops clients that haven't been seen within the expiry window.
func (l *Limiter) sweep() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for id, cl := range l.clients {
			if time.Since(cl.lastAccess) > time.Duration(l.Expiry)*time.Minute {
				delete(l.clients, id)
			}
		}
		l.mu.Unlock()
	}
}

// Every converts a minimum interval between events to requests per second.
func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
