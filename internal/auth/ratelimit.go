package auth

import (
	"context"
	"net"
	"sync"
	"time"
)

const (
	rateWindow   = 5 * time.Minute
	rateMaxFails = 10
	rateMaxHosts = 10000 // max tracked hosts
)

// RateLimiter tracks failed authentication attempts per remote host.
type RateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	window   time.Duration
	maxFails int
	now      func() time.Time
}

// NewRateLimiter allows up to maxFails failures per host within window.
// Zero values select 10 failures per 5 minutes.
func NewRateLimiter(window time.Duration, maxFails int) *RateLimiter {
	if window <= 0 {
		window = rateWindow
	}
	if maxFails <= 0 {
		maxFails = rateMaxFails
	}
	return &RateLimiter{
		failures: make(map[string][]time.Time),
		window:   window,
		maxFails: maxFails,
		now:      time.Now,
	}
}

// Run removes stale entries every minute until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *RateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.window)
	for host, times := range l.failures {
		if recent := since(times, cutoff); len(recent) == 0 {
			delete(l.failures, host)
		} else {
			l.failures[host] = recent
		}
	}
}

// Allow reports whether remoteAddr may attempt to authenticate.
func (l *RateLimiter) Allow(remoteAddr string) bool {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := since(l.failures[host], l.now().Add(-l.window))
	if len(recent) == 0 {
		delete(l.failures, host)
		return true
	}
	l.failures[host] = recent
	return len(recent) < l.maxFails
}

// RecordFailure counts one failed attempt against remoteAddr.
func (l *RateLimiter) RecordFailure(remoteAddr string) {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.failures[host]; !exists && len(l.failures) >= rateMaxHosts {
		var oldestHost string
		var oldest time.Time
		for h, times := range l.failures {
			if len(times) > 0 && (oldestHost == "" || times[0].Before(oldest)) {
				oldestHost = h
				oldest = times[0]
			}
		}
		delete(l.failures, oldestHost)
	}
	l.failures[host] = append(l.failures[host], l.now())
}

// Reset forgets the failures of remoteAddr after a successful sign-in.
func (l *RateLimiter) Reset(remoteAddr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, hostOf(remoteAddr))
}

func since(times []time.Time, cutoff time.Time) []time.Time {
	filtered := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func hostOf(remoteAddr string) string {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		host = remoteAddr
	}
	return host
}
