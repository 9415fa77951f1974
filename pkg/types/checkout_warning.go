package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CheckoutWarning describes a recoverable condition hit while composing an
// order: a shipping fallback, an unknown destination, a rejected coupon.
type CheckoutWarning struct {
	Code      enums.CheckoutWarningCode `json:"code"`
	Message   string                    `json:"message"`
	VendorID  *uuid.UUID                `json:"vendor_id,omitempty"`
	ProductID *uuid.UUID                `json:"product_id,omitempty"`
	Fields    []string                  `json:"fields,omitempty"`
}

// Error lets a warning travel through multierr aggregation.
func (w CheckoutWarning) Error() string {
	if w.VendorID != nil {
		return fmt.Sprintf("%s (vendor %s): %s", w.Code, w.VendorID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// CheckoutWarnings is persisted as JSONB on order groups.
type CheckoutWarnings []CheckoutWarning

// ForVendor returns the warnings scoped to vendorID.
func (c CheckoutWarnings) ForVendor(vendorID uuid.UUID) CheckoutWarnings {
	var out CheckoutWarnings
	for _, w := range c {
		if w.VendorID != nil && *w.VendorID == vendorID {
			out = append(out, w)
		}
	}
	return out
}

// Err folds the warnings into a single error for logging; nil when empty.
func (c CheckoutWarnings) Err() error {
	var err error
	for _, w := range c {
		err = multierr.Append(err, w)
	}
	return err
}

// Value serializes the warnings to JSON.
func (c CheckoutWarnings) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan decodes JSONB into the warning slice.
func (c *CheckoutWarnings) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded CheckoutWarnings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
