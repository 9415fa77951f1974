package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	idempotentReplayHeader = "Idempotent-Replay"

	writeKeyTTL    = 24 * time.Hour
	checkoutKeyTTL = 7 * 24 * time.Hour
)

// idempotentRoutes lists the writes that require an Idempotency-Key and how
// long their responses are kept.
var idempotentRoutes = []struct {
	method  string
	pattern string
	ttl     time.Duration
}{
	{http.MethodPost, "/api/v1/cart/items", writeKeyTTL},
	{http.MethodPut, "/api/v1/vendors/{vendorId}/shipping", writeKeyTTL},
	{http.MethodPut, "/api/v1/vendors/{vendorId}/shipping/overrides/{countryId}", writeKeyTTL},
	{http.MethodPost, "/api/v1/checkout", checkoutKeyTTL},
	{http.MethodPatch, "/api/v1/orders/{orderId}/groups/{groupId}/status", checkoutKeyTTL},
}

// idempotentMatcher is a chi tree holding only idempotentRoutes. Matching
// against it yields the route pattern before the real router has run.
type idempotentMatcher struct {
	mux  *chi.Mux
	ttls map[string]time.Duration
}

func newIdempotentMatcher() *idempotentMatcher {
	m := &idempotentMatcher{mux: chi.NewMux(), ttls: map[string]time.Duration{}}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, route := range idempotentRoutes {
		m.mux.Method(route.method, route.pattern, noop)
		m.ttls[route.method+" "+route.pattern] = route.ttl
	}
	return m
}

func (m *idempotentMatcher) ttl(method, path string) (time.Duration, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, method, path) {
		return 0, false
	}
	ttl, ok := m.ttls[method+" "+rctx.RoutePattern()]
	return ttl, ok
}

var defaultIdempotentMatcher = newIdempotentMatcher()

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response of a listed write when the same
// Idempotency-Key comes back with the same body. A different body under a
// used key is rejected. 5xx responses are never stored so the client can
// retry with the same key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := defaultIdempotentMatcher.ttl(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.Validation("Idempotency-Key header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(scopeOf(r), clientKey)

			prior, err := lookup(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key"))
				return
			}
			if prior != nil {
				if prior.RequestHash != hash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, prior)
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}

			raw, err := json.Marshal(storedResponse{
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				RequestHash: hash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(raw), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_key", clientKey), "store idempotent response", err)
			}
		})
	}
}

// scopeOf keeps keys from colliding across callers and endpoints.
func scopeOf(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{UserIDFromContext(ctx), VendorIDFromContext(ctx), r.Method, r.URL.Path}, "|")
}

func lookup(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, err
	}
	return &prior, nil
}

func replay(w http.ResponseWriter, prior *storedResponse) {
	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.Header().Set(idempotentReplayHeader, "true")
	w.WriteHeader(prior.Status)
	_, _ = w.Write(prior.Body)
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
