package httpserver

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token-bucket limiter per principal.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		m:     make(map[string]*rate.Limiter),
		rps:   rps,
		burst: burst,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

// sendRateLimit throttles per principal. Applied to the send path only.
func sendRateLimit(pool *limiterPool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := CurrentPrincipal(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !pool.get(principal.ID).Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorInfo{
					Code:    "rate_limited",
					Message: "too many messages, slow down",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
