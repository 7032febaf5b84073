package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/gearshop/gearshop/pkg/metrics"
)

type contextKey string

const accountIDKey contextKey = "gearshop.account_id"

// accountID returns the authenticated account identifier placed in the
// request context by requireAuth.
func accountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// requireAuth resolves the bearer token to an account identifier. Only the
// identifier is carried forward; each handler loads the account (and its
// role) fresh from storage.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.client.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		ctx := context.WithValue(r.Context(), accountIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per method and chi route
// pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}

// loginLimiter applies a per-client-address token bucket to the login
// endpoint. Stale buckets are evicted lazily.
type loginLimiter struct {
	mu      sync.Mutex
	buckets map[string]*limiterEntry
	rate    rate.Limit
	burst   int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 10 * time.Minute

func newLoginLimiter(perMinute int, burst int) *loginLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &loginLimiter{
		buckets: make(map[string]*limiterEntry),
		rate:    rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

func (l *loginLimiter) allow(addr string) bool {
	if l == nil {
		return true
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.buckets[host]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[host] = entry
	}
	entry.lastSeen = now

	if len(l.buckets) > 1024 {
		for key, stale := range l.buckets {
			if now.Sub(stale.lastSeen) > limiterIdleTTL {
				delete(l.buckets, key)
			}
		}
	}

	return entry.limiter.Allow()
}

func (s *Server) rateLimitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r.RemoteAddr) {
			metrics.LoginRateLimitedTotal.Inc()
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
				Code:    "rate_limited",
				Message: "too many login attempts, slow down",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}
