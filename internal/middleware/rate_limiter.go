package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ms-events/internal/apperrors"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key in memory. Buckets idle for
// longer than IdleTTL are swept by a background janitor.
type RateLimiter struct {
	conf    config.RateLimitConfig
	logger  *logger.Logger
	mu      sync.Mutex
	buckets map[string]*keyLimiter
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewRateLimiter(conf config.RateLimitConfig, l *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		conf:    conf,
		logger:  l,
		buckets: make(map[string]*keyLimiter),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	interval := conf.IdleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	go rl.janitor(interval)

	return rl
}

func (rl *RateLimiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.buckets {
		if now.Sub(v.lastSeen) > rl.conf.IdleTTL {
			delete(rl.buckets, k)
		}
	}
}

// Close stops the janitor.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}

	lim := rate.NewLimiter(rate.Limit(rl.conf.RPS), rl.conf.Burst)
	rl.buckets[key] = &keyLimiter{limiter: lim, lastSeen: now}
	return lim
}

// KeySelector decides what a request is limited by.
type KeySelector func(r *http.Request) string

// ClientIPAndPath limits each client separately on each route.
func ClientIPAndPath(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host + " " + r.URL.Path
}

func (rl *RateLimiter) Middleware(selectKey KeySelector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := selectKey(r)
			if !rl.getLimiter(key).Allow() {
				rl.logger.LogSecurity("RATE_LIMIT", fmt.Sprintf("rejected %s", key))
				w.Header().Set("Retry-After", "1")
				utils.WriteJSON(w, utils.ErrorResponse(apperrors.Status(apperrors.ErrRateLimited),
					"Too many requests. Please try again later.", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
