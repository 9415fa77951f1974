package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/countries"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type countryResponse struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

func newCountryResponse(c models.Country) countryResponse {
	return countryResponse{ID: c.ID, Code: c.Code, Name: c.Name}
}

// Countries lists shipping destinations, or looks one up when ?code= is set.
func Countries(svc countries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "country service unavailable"))
			return
		}

		if code := strings.TrimSpace(r.URL.Query().Get("code")); code != "" {
			country, err := svc.GetByCode(r.Context(), code)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newCountryResponse(*country))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]countryResponse, 0, len(list))
		for _, c := range list {
			out = append(out, newCountryResponse(c))
		}
		responses.WriteSuccess(w, out)
	}
}

// Country returns one destination by id.
func Country(svc countries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "country service unavailable"))
			return
		}
		countryID, err := validators.ParseUUIDParam(r, "countryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		country, err := svc.Get(r.Context(), countryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCountryResponse(*country))
	}
}
