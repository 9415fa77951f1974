package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxCouponCodeLength = 64

type checkoutRequest struct {
	CountryID       string            `json:"country_id" validate:"required,uuid"`
	ShippingAddress *types.Address    `json:"shipping_address" validate:"omitempty"`
	Coupons         map[string]string `json:"coupons,omitempty" validate:"omitempty,dive,keys,uuid,endkeys,max=64"`
}

// CheckoutQuote prices the caller's cart for a destination without placing an order.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, input, err := decodeCheckout(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Checkout places the caller's cart as one order split into vendor groups.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, input, err := decodeCheckout(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ShippingAddress == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("shipping_address is required").
				WithDetails(map[string]string{"shipping_address": "is required"}))
			return
		}

		result, err := svc.Checkout(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func decodeCheckout(r *http.Request) (uuid.UUID, checkoutsvc.Input, error) {
	userID, err := middleware.UserUUIDFromContext(r.Context())
	if err != nil {
		return uuid.Nil, checkoutsvc.Input{}, err
	}

	var payload checkoutRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return uuid.Nil, checkoutsvc.Input{}, err
	}

	countryID, err := validators.ParseUUID(payload.CountryID, "country_id")
	if err != nil {
		return uuid.Nil, checkoutsvc.Input{}, err
	}

	input := checkoutsvc.Input{
		CountryID:       countryID,
		ShippingAddress: payload.ShippingAddress,
		Coupons:         make(map[uuid.UUID]string, len(payload.Coupons)),
	}
	for rawVendor, code := range payload.Coupons {
		vendorID, err := validators.ParseUUID(rawVendor, "coupons")
		if err != nil {
			return uuid.Nil, checkoutsvc.Input{}, err
		}
		code = coupons.NormalizeCode(validators.SanitizeString(code, maxCouponCodeLength))
		if code == "" {
			continue
		}
		if err := validators.Var("coupons."+rawVendor, code, "coupon_code"); err != nil {
			return uuid.Nil, checkoutsvc.Input{}, err
		}
		input.Coupons[vendorID] = code
	}
	return userID, input, nil
}
