package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const limiterIdleTTL = 10 * time.Minute

// WriteLimiter holds one token bucket per caller. Buckets untouched for
// limiterIdleTTL are swept on the next call.
type WriteLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewWriteLimiter allows perMinute writes per caller with the given burst. It
// returns nil, a disabled limiter, when perMinute is not positive.
func NewWriteLimiter(perMinute, burst int) *WriteLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &WriteLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   max(burst, 1),
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

// take spends one token for key. When none is left it reports how long the
// caller should wait.
func (l *WriteLimiter) take(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > limiterIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now

	res := b.lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit throttles unsafe methods per authenticated user, or per client
// address when no user is attached. A nil limiter passes everything through.
func RateLimit(l *WriteLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			key := UserIDFromContext(r.Context())
			if key == "" {
				key = "addr:" + remoteHost(r)
			}
			ok, wait := l.take(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			ctx := logg.WithField(r.Context(), "retry_after_s", retryAfter)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many writes, slow down").
				WithDetails(map[string]any{"retry_after_seconds": retryAfter}))
		})
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
