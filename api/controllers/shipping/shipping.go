package shipping

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalshipping "github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Get returns the vendor's default rates and per-country overrides.
func Get(svc internalshipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		vendorID, err := authorizedVendor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.Get(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// UpdateDefaults replaces the vendor-level rate fields. Null fields fall back
// to the platform defaults at resolution time.
func UpdateDefaults(svc internalshipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		vendorID, err := authorizedVendor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var rates internalshipping.Rates
		if err := validators.DecodeJSONBody(r, &rates); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateDefaults(r.Context(), vendorID, rates); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}

// PutOverride creates or replaces the vendor's override for one country.
func PutOverride(svc internalshipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		vendorID, err := authorizedVendor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		countryID, err := validators.ParseUUIDParam(r, "countryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var rates internalshipping.Rates
		if err := validators.DecodeJSONBody(r, &rates); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.PutOverride(r.Context(), vendorID, countryID, rates); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}

// DeleteOverride removes the vendor's override for one country.
func DeleteOverride(svc internalshipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		vendorID, err := authorizedVendor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		countryID, err := validators.ParseUUIDParam(r, "countryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteOverride(r.Context(), vendorID, countryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Resolve previews the effective rates a checkout to country_id would use.
func Resolve(svc internalshipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		vendorID, err := authorizedVendor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		countryID, err := validators.ParseUUID(r.URL.Query().Get("country_id"), "country_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Preview(r.Context(), vendorID, countryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// authorizedVendor reads {vendorId} and checks that the caller acts for that
// vendor. Admins may act for any vendor.
func authorizedVendor(r *http.Request) (uuid.UUID, error) {
	vendorID, err := validators.ParseUUIDParam(r, "vendorId")
	if err != nil {
		return uuid.Nil, err
	}
	switch enums.UserRole(middleware.RoleFromContext(r.Context())) {
	case enums.UserRoleAdmin:
		return vendorID, nil
	case enums.UserRoleVendor:
		actor := middleware.VendorUUIDFromContext(r.Context())
		if actor == nil || *actor != vendorID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor mismatch")
		}
		return vendorID, nil
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required")
	}
}
