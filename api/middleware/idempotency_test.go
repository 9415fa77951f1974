package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

func TestIdempotentMatcher(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/checkout", checkoutKeyTTL, true},
		{http.MethodPost, "/api/v1/checkout/", checkoutKeyTTL, true},
		{http.MethodPatch, "/api/v1/orders/a/groups/b/status", checkoutKeyTTL, true},
		{http.MethodPost, "/api/v1/cart/items", writeKeyTTL, true},
		{http.MethodPut, "/api/v1/vendors/2b1d/shipping", writeKeyTTL, true},
		{http.MethodPut, "/api/v1/vendors/2b1d/shipping/overrides/9f3a", writeKeyTTL, true},
		{http.MethodPost, "/api/v1/checkout/quote", 0, false},
		{http.MethodDelete, "/api/v1/vendors/2b1d/shipping/overrides/9f3a", 0, false},
		{http.MethodGet, "/api/v1/cart/items", 0, false},
		{http.MethodPatch, "/api/v1/cart/items/abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			ttl, ok := defaultIdempotentMatcher.ttl(tt.method, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, ttl)
		})
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	called := false
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{"country_id":"x"}`, ""))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)
}

func TestIdempotencySkipsUnlistedRoutes(t *testing.T) {
	called := false
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"placed":true}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest(`{"country_id":"x"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(idempotentReplayHeader))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest(`{"country_id":"x"}`, "abc"))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get(idempotentReplayHeader))
	assert.JSONEq(t, `{"data":{"placed":true}}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for _, ttl := range store.ttls {
		assert.Equal(t, checkoutKeyTTL, ttl)
	}
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{"country_id":"x"}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{"country_id":"y"}`, "xyz"))

	assert.Equal(t, http.StatusConflict, resp.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{"country_id":"x"}`, "retry-me"))
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 1)
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, user := range []string{"user-a", "user-b"} {
		req := checkoutRequest(`{}`, "shared")
		handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(WithUserID(req.Context(), user)))
	}
	assert.Equal(t, 2, calls)
}

func checkoutRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}
