package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalshipping "github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubShippingService struct {
	defaults      internalshipping.Rates
	override      internalshipping.Rates
	overrideFor   uuid.UUID
	deletedFor    uuid.UUID
	preview       *internalshipping.Resolution
	err           error
	defaultsCalls int
}

func (s *stubShippingService) Get(ctx context.Context, vendorID uuid.UUID) (*internalshipping.VendorShipping, error) {
	return &internalshipping.VendorShipping{VendorID: vendorID, Defaults: s.defaults}, s.err
}

func (s *stubShippingService) UpdateDefaults(ctx context.Context, vendorID uuid.UUID, rates internalshipping.Rates) error {
	s.defaultsCalls++
	s.defaults = rates
	return s.err
}

func (s *stubShippingService) PutOverride(ctx context.Context, vendorID, countryID uuid.UUID, rates internalshipping.Rates) error {
	s.overrideFor, s.override = countryID, rates
	return s.err
}

func (s *stubShippingService) DeleteOverride(ctx context.Context, vendorID, countryID uuid.UUID) error {
	s.deletedFor = countryID
	return s.err
}

func (s *stubShippingService) Preview(ctx context.Context, vendorID, countryID uuid.UUID) (*internalshipping.Resolution, error) {
	return s.preview, s.err
}

func vendorRequest(method, target, body string, params map[string]string, role enums.UserRole, actingVendor *uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	ctx = middleware.WithRole(ctx, string(role))
	if actingVendor != nil {
		ctx = middleware.WithVendorID(ctx, actingVendor.String())
	}
	return req.WithContext(ctx)
}

func TestUpdateDefaultsDecodesNullableRates(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubShippingService{}
	body := `{"service":"DHL","fee_per_item":"5.00","fee_for_additional_item":null,"fee_per_kg":null,"fee_fixed":null,"delivery_time_min":2,"delivery_time_max":5,"return_policy":null}`
	req := vendorRequest(http.MethodPut, "/", body, map[string]string{"vendorId": vendorID.String()}, enums.UserRoleVendor, &vendorID)
	resp := httptest.NewRecorder()
	UpdateDefaults(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, svc.defaultsCalls)
	require.NotNil(t, svc.defaults.Service)
	require.Equal(t, "DHL", *svc.defaults.Service)
	require.True(t, svc.defaults.FeePerItem.Valid)
	require.True(t, svc.defaults.FeePerItem.Decimal.Equal(decimal.RequireFromString("5")))
	require.False(t, svc.defaults.FeePerKg.Valid)
}

func TestVendorCannotEditAnotherVendor(t *testing.T) {
	acting := uuid.New()
	svc := &stubShippingService{}
	req := vendorRequest(http.MethodPut, "/", `{}`, map[string]string{"vendorId": uuid.NewString()}, enums.UserRoleVendor, &acting)
	resp := httptest.NewRecorder()
	UpdateDefaults(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
	require.Zero(t, svc.defaultsCalls)
}

func TestCustomerCannotReadShipping(t *testing.T) {
	req := vendorRequest(http.MethodGet, "/", "", map[string]string{"vendorId": uuid.NewString()}, enums.UserRoleCustomer, nil)
	resp := httptest.NewRecorder()
	Get(&stubShippingService{}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdminPutsOverride(t *testing.T) {
	vendorID, countryID := uuid.New(), uuid.New()
	svc := &stubShippingService{}
	params := map[string]string{"vendorId": vendorID.String(), "countryId": countryID.String()}
	req := vendorRequest(http.MethodPut, "/", `{"fee_fixed":"12.50"}`, params, enums.UserRoleAdmin, nil)
	resp := httptest.NewRecorder()
	PutOverride(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, countryID, svc.overrideFor)
	require.True(t, svc.override.FeeFixed.Decimal.Equal(decimal.RequireFromString("12.5")))
}

func TestPutOverrideUnknownCountry(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubShippingService{err: pkgerrors.New(pkgerrors.CodeNotFound, "country not found")}
	params := map[string]string{"vendorId": vendorID.String(), "countryId": uuid.NewString()}
	req := vendorRequest(http.MethodPut, "/", `{}`, params, enums.UserRoleVendor, &vendorID)
	resp := httptest.NewRecorder()
	PutOverride(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteOverride(t *testing.T) {
	vendorID, countryID := uuid.New(), uuid.New()
	svc := &stubShippingService{}
	params := map[string]string{"vendorId": vendorID.String(), "countryId": countryID.String()}
	req := vendorRequest(http.MethodDelete, "/", "", params, enums.UserRoleVendor, &vendorID)
	resp := httptest.NewRecorder()
	DeleteOverride(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, countryID, svc.deletedFor)
}

func TestResolvePreview(t *testing.T) {
	vendorID, countryID := uuid.New(), uuid.New()
	svc := &stubShippingService{preview: &internalshipping.Resolution{
		VendorID:       vendorID,
		CountryID:      countryID,
		Rates:          internalshipping.ResolvedRates{Service: "platform", FeePerItem: decimal.RequireFromString("5")},
		FallbackFields: []string{"service"},
	}}
	req := vendorRequest(http.MethodGet, "/?country_id="+countryID.String(), "", map[string]string{"vendorId": vendorID.String()}, enums.UserRoleVendor, &vendorID)
	resp := httptest.NewRecorder()
	Resolve(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			FallbackFields []string `json:"fallback_fields"`
			Rates          struct {
				Service string `json:"service"`
			} `json:"rates"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, "platform", envelope.Data.Rates.Service)
	require.Equal(t, []string{"service"}, envelope.Data.FallbackFields)
}

func TestResolveRequiresCountry(t *testing.T) {
	vendorID := uuid.New()
	req := vendorRequest(http.MethodGet, "/", "", map[string]string{"vendorId": vendorID.String()}, enums.UserRoleVendor, &vendorID)
	resp := httptest.NewRecorder()
	Resolve(&stubShippingService{}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}
