package flaghandlers

import (
	"net/http"
	"sync"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// SubmitLimiter hands each team its own token bucket. The set of teams is
// small and fixed, so buckets are never evicted.
type SubmitLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

// NewSubmitLimiter allows perSecond submissions per team with the given
// burst. A non-positive rate disables limiting.
func NewSubmitLimiter(perSecond float64, burst int) *SubmitLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &SubmitLimiter{limit: limit, burst: burst, buckets: map[string]*rate.Limiter{}}
}

func (l *SubmitLimiter) bucket(team string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[team]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[team] = b
	}
	return b
}

// Middleware rejects requests beyond the team's budget with 429. The team is
// read from the team_id route parameter.
func (l *SubmitLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.bucket(chi.URLParam(r, "team_id")).Allow() {
			w.Header().Set("Retry-After", "1")
			httpx.WriteJSON(w, http.StatusTooManyRequests, httpx.ErrorBody{
				Error:   "rate_limited",
				Message: "too many flag submissions",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
