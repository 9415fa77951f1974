package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func fieldError(message, field string) *pkgerrors.Error {
	return pkgerrors.Validation(message).WithDetails(map[string]any{"field": field})
}

// ParseUUIDParam reads a chi path parameter as a uuid.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, fieldError("path parameter required", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fieldError("path parameter must be a uuid", key)
	}
	return id, nil
}

// ParseUUID parses a uuid carried in a request body or header.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fieldError("invalid uuid", field)
	}
	return id, nil
}

// ParseQueryInt reads an optional integer query parameter bounded by
// [lo, hi]. A missing parameter yields fallback.
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError("query parameter must be numeric", key)
	}
	if value < lo || value > hi {
		return 0, pkgerrors.Validation("query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return value, nil
}

// SanitizeString trims input and cuts it to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	if runes := []rune(trimmed); len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
