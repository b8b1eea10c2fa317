package services

import (
	"sync"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// LimiterPool keeps one token bucket per key.
type LimiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func NewLimiterPool(rps float64, burst int) *LimiterPool {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &LimiterPool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *LimiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

func (p *LimiterPool) Allow(key string) bool {
	if p.get(key).Allow() {
		return true
	}
	rateLimitedCounter.Inc()
	return false
}

// Reset forgets every bucket, run periodically so idle accounts do not pile up.
func (p *LimiterPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.m)
}

var SendLimiter = NewLimiterPool(5, 10)

func SetupLimiter() {
	SendLimiter = NewLimiterPool(viper.GetFloat64("limits.send_rps"), viper.GetInt("limits.send_burst"))
}
