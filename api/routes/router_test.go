package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryIdempotencyStore struct {
	data map[string]string
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("idem:%s:%s", scope, id)
}

type stubCheckoutService struct {
	calls int
}

func (s *stubCheckoutService) Quote(ctx context.Context, userID uuid.UUID, input checkout.Input) (*checkout.Result, error) {
	s.calls++
	return &checkout.Result{Order: &orders.OrderDetail{ID: uuid.New(), UserID: userID}}, nil
}

func (s *stubCheckoutService) Checkout(ctx context.Context, userID uuid.UUID, input checkout.Input) (*checkout.Result, error) {
	s.calls++
	return &checkout.Result{Order: &orders.OrderDetail{ID: uuid.New(), UserID: userID}, Placed: true}, nil
}

type stubCartService struct{}

func (stubCartService) Lines(ctx context.Context, userID uuid.UUID) ([]cart.Line, error) {
	return nil, nil
}

func (stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*models.CartItem, error) {
	return &models.CartItem{ID: uuid.New(), SizeID: input.SizeID, Quantity: input.Quantity}, nil
}

func (stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) error {
	return nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID, UserID: userID}, nil
}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrdersService) UpdateGroupStatus(ctx context.Context, input orders.GroupStatusInput) (*orders.GroupStatusResult, error) {
	return &orders.GroupStatusResult{OrderID: input.OrderID, GroupID: input.GroupID, Status: input.Status}, nil
}

type stubShippingService struct{}

func (stubShippingService) Get(ctx context.Context, vendorID uuid.UUID) (*shipping.VendorShipping, error) {
	return &shipping.VendorShipping{VendorID: vendorID}, nil
}

func (stubShippingService) UpdateDefaults(ctx context.Context, vendorID uuid.UUID, rates shipping.Rates) error {
	return nil
}

func (stubShippingService) PutOverride(ctx context.Context, vendorID, countryID uuid.UUID, rates shipping.Rates) error {
	return nil
}

func (stubShippingService) DeleteOverride(ctx context.Context, vendorID, countryID uuid.UUID) error {
	return nil
}

func (stubShippingService) Preview(ctx context.Context, vendorID, countryID uuid.UUID) (*shipping.Resolution, error) {
	return &shipping.Resolution{VendorID: vendorID, CountryID: countryID}, nil
}

type stubCountryService struct{}

func (stubCountryService) Get(ctx context.Context, id uuid.UUID) (*models.Country, error) {
	return &models.Country{ID: id, Code: "PT", Name: "Portugal"}, nil
}

func (stubCountryService) GetByCode(ctx context.Context, code string) (*models.Country, error) {
	return &models.Country{ID: uuid.New(), Code: code}, nil
}

func (stubCountryService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return true, nil
}

func (stubCountryService) List(ctx context.Context) ([]models.Country, error) {
	return nil, nil
}

type testRouter struct {
	handler  http.Handler
	checkout *stubCheckoutService
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) testRouter {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	registry := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(registry)
	checkoutSvc := &stubCheckoutService{}
	return testRouter{
		checkout: checkoutSvc,
		handler: NewRouter(Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          stubPinger{},
			Redis:       stubPinger{},
			Idempotency: &memoryIdempotencyStore{data: map[string]string{}},
			Gatherer:    registry,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Checkout:    checkoutSvc,
			Cart:        stubCartService{},
			Orders:      stubOrdersService{},
			Shipping:    stubShippingService{},
			Countries:   stubCountryService{},
		}),
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCustomerReadsCart(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVendorCannotCheckout(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	vendorID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{"country_id":"`+uuid.NewString()+`"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleVendor, &vendorID))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"country_id":"` + uuid.NewString() + `","shipping_address":{"full_name":"Ada","line1":"1 Main","city":"Lisbon","postal_code":"1000"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if router.checkout.calls != 0 {
		t.Fatal("checkout should not run without an idempotency key")
	}
}

func TestCheckoutReplayDoesNotPlaceTwice(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.UserRoleCustomer, nil)
	body := `{"country_id":"` + uuid.NewString() + `","shipping_address":{"full_name":"Ada","line1":"1 Main","city":"Lisbon","postal_code":"1000"}}`

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := httptest.NewRecorder()
		router.handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
		bodies = append(bodies, resp.Body.String())
	}
	if router.checkout.calls != 1 {
		t.Fatalf("expected one checkout, got %d", router.checkout.calls)
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("expected identical replay body")
	}
}

func TestQuoteDoesNotRequireIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{"country_id":"`+uuid.NewString()+`"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVendorShippingRequiresMatchingVendor(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	vendorID := uuid.New()
	token := buildToken(t, cfg, enums.UserRoleVendor, &vendorID)

	own := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/"+vendorID.String()+"/shipping", nil)
	own.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, own)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for own vendor got %d: %s", resp.Code, resp.Body.String())
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/"+uuid.NewString()+"/shipping", nil)
	other.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other vendor got %d", resp.Code)
	}
}

func TestCustomerCannotEditShipping(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/vendors/"+uuid.NewString()+"/shipping", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer, nil))
	req.Header.Set("Idempotency-Key", "edit-1")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.Sign(cfg.JWT, time.Now(), pkgAuth.Principal{UserID: uuid.New(), Role: role, VendorID: vendorID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
