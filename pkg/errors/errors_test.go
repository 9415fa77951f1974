package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		public    string
		retryable bool
		detailsOK bool
	}{
		{CodeValidation, http.StatusBadRequest, "validation failed", false, true},
		{CodeUnauthorized, http.StatusUnauthorized, "authentication required", false, false},
		{CodeForbidden, http.StatusForbidden, "access denied", false, false},
		{CodeNotFound, http.StatusNotFound, "resource not found", false, false},
		{CodeConflict, http.StatusConflict, "conflict detected", false, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, "state transition disallowed", false, true},
		{CodeIdempotency, http.StatusConflict, "idempotency key reused", false, true},
		{CodeRateLimit, http.StatusTooManyRequests, "rate limit exceeded", true, true},
		{CodeInternal, http.StatusInternalServerError, "internal server error", true, false},
		{CodeDependency, http.StatusServiceUnavailable, "dependency unavailable", true, true},
		{"SOMETHING_UNKNOWN", http.StatusInternalServerError, "internal server error", true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			m := MetadataFor(tt.code)
			assert.Equal(t, tt.status, m.HTTPStatus)
			assert.Equal(t, tt.public, m.PublicMessage)
			assert.Equal(t, tt.retryable, m.Retryable)
			assert.Equal(t, tt.detailsOK, m.DetailsAllowed)
		})
	}
}

func TestWithDetailsMutatesInPlace(t *testing.T) {
	err := Validation("missing country_id")
	assert.Nil(t, err.Details())

	same := err.WithDetails(map[string]any{"field": "country_id"})
	assert.Same(t, err, same)
	assert.Equal(t, map[string]any{"field": "country_id"}, err.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing country_id", err.Error())
}

func TestConstructorsMapToCodes(t *testing.T) {
	cause := stdErrors.New("connection reset")
	persisted := Persistence(cause, "persist order")

	assert.Equal(t, CodeValidation, Validation("empty cart").Code())
	assert.Equal(t, CodeConflict, Concurrency("stock changed").Code())
	assert.Equal(t, CodeDependency, persisted.Code())
	assert.ErrorIs(t, persisted, cause)
	assert.Nil(t, Wrap(CodeInternal, nil, "no cause").Unwrap())
}

func TestIsAndAsWalkTheChain(t *testing.T) {
	inner := Concurrency("item no longer available in requested quantity")
	outer := fmt.Errorf("checkout attempt 2: %w", inner)

	require.NotNil(t, As(outer))
	assert.Same(t, inner, As(outer))
	assert.True(t, Is(outer, CodeConflict))
	assert.False(t, Is(outer, CodeValidation))
	assert.False(t, Is(nil, CodeConflict))
	assert.False(t, Is(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.WithDetails("x"))
	assert.NoError(t, e.Unwrap())
}

func TestDumpCapturesPostgresFault(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "coupons_vendor_code_key", TableName: "coupons"}
	err := Wrap(CodeConflict, fmt.Errorf("insert coupon: %w", pgErr), "coupon exists")

	d := Dump(err)
	assert.Equal(t, CodeConflict, d.Code)
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23505", d.Postgres.Code)
	assert.Equal(t, "coupons_vendor_code_key", d.Postgres.Constraint)
	assert.Len(t, d.Chain, 3)

	assert.Nil(t, Dump(stdErrors.New("plain")).Postgres)
	assert.Empty(t, Dump(nil).TopMessage)
}
