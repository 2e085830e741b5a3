package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Role identifies which part of the pipeline a key is serving. Each role is
// pinned to a key so concurrent agents spread load across the pool.
type Role string

const (
	RoleOrchestrator Role = "ORCHESTRATOR"
	RoleFlights      Role = "FLIGHTS"
	RoleHotels       Role = "HOTELS"
	RoleItinerary    Role = "ITINERARY"
	RoleSummary      Role = "SUMMARY"
)

// KeyPool hands out API keys round-robin and rotates a role to the next key
// when its current one hits a rate limit.
type KeyPool struct {
	mu          sync.Mutex
	keys        []string
	next        int
	assignments map[Role]string
}

func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key pool requires at least one key")
	}
	return &KeyPool{
		keys:        keys,
		assignments: make(map[Role]string),
	}, nil
}

// Size returns the number of keys in the pool.
func (p *KeyPool) Size() int {
	return len(p.keys)
}

// Assign returns the key pinned to role, pinning the next pool key on first
// use.
func (p *KeyPool) Assign(role Role) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := p.assignments[role]; ok {
		return key
	}
	key := p.keys[p.next%len(p.keys)]
	p.next++
	p.assignments[role] = key
	return key
}

// Rotate moves role to the next key in the pool and returns it.
func (p *KeyPool) Rotate(role Role) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.keys[p.next%len(p.keys)]
	p.next++
	p.assignments[role] = key
	return key
}

// IsRateLimited reports whether err looks like a provider quota or rate
// limit rejection worth rotating keys over.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "resource_exhausted", "quota", "rate limit", "rate-limit"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var retryDelayRe = regexp.MustCompile(`retry(?:delay|[ -]in)?\D*(\d+(?:\.\d+)?)\s*s`)

// RetryDelay extracts the provider-suggested retry delay from a rate limit
// error, capped at max. Falls back to one second when no hint is present.
func RetryDelay(err error, max time.Duration) time.Duration {
	delay := time.Second
	if err != nil {
		if m := retryDelayRe.FindStringSubmatch(strings.ToLower(err.Error())); m != nil {
			if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
				delay = time.Duration(secs * float64(time.Second))
			}
		}
	}
	if delay > max {
		delay = max
	}
	return delay
}
