package cart

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

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	lines      []cartsvc.Line
	item       *models.CartItem
	err        error
	lastAdd    cartsvc.AddItemInput
	lastQty    int
	lastItemID uuid.UUID
}

func (s *stubCartService) Lines(ctx context.Context, userID uuid.UUID) ([]cartsvc.Line, error) {
	return s.lines, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*models.CartItem, error) {
	s.lastAdd = input
	return s.item, s.err
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) error {
	s.lastItemID, s.lastQty = itemID, qty
	return s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	s.lastItemID = itemID
	return s.err
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withItemParam(req *http.Request, itemID uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("itemId", itemID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestListReturnsLines(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubCartService{lines: []cartsvc.Line{{
		CartItemID:  uuid.New(),
		VendorID:    vendorID,
		ProductName: "Tee",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("10.00"),
	}}}

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil), uuid.New())
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Items []struct {
				VendorID uuid.UUID `json:"vendor_id"`
				Quantity int       `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].VendorID != vendorID || envelope.Data.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", envelope.Data.Items)
	}
}

func TestListEmptyCartReturnsEmptyArray(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil), uuid.New())
	resp := httptest.NewRecorder()
	List(&stubCartService{}, nil).ServeHTTP(resp, req)

	if !strings.Contains(resp.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items array, got %s", resp.Body.String())
	}
}

func TestAddItemCreatesLine(t *testing.T) {
	sizeID := uuid.New()
	svc := &stubCartService{item: &models.CartItem{ID: uuid.New(), SizeID: sizeID, Quantity: 3}}

	body := `{"size_id":"` + sizeID.String() + `","quantity":3}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastAdd.SizeID != sizeID || svc.lastAdd.Quantity != 3 {
		t.Fatalf("unexpected add input %+v", svc.lastAdd)
	}
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	body := `{"size_id":"` + uuid.NewString() + `","quantity":0}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	AddItem(&stubCartService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddItemSurfacesStockConflict(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available stock")}
	body := `{"size_id":"` + uuid.NewString() + `","quantity":5}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestUpdateItemPassesQuantity(t *testing.T) {
	svc := &stubCartService{}
	itemID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/"+itemID.String(), strings.NewReader(`{"quantity":4}`)), uuid.New())
	req = withItemParam(req, itemID)
	resp := httptest.NewRecorder()
	UpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastItemID != itemID || svc.lastQty != 4 {
		t.Fatalf("unexpected update %s %d", svc.lastItemID, svc.lastQty)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")}
	itemID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), nil), uuid.New())
	req = withItemParam(req, itemID)
	resp := httptest.NewRecorder()
	RemoveItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestRemoveItemRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	RemoveItem(&stubCartService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/x", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
