package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the shipping address snapshotted onto an order.
type Address struct {
	FullName   string  `json:"full_name" validate:"required,max=200"`
	Line1      string  `json:"line1" validate:"required,max=300"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=300"`
	City       string  `json:"city" validate:"required,max=120"`
	State      string  `json:"state,omitempty" validate:"max=120"`
	PostalCode string  `json:"postal_code" validate:"required,max=32"`
	Phone      string  `json:"phone,omitempty" validate:"max=40"`
}

// Validate checks the fields every carrier label needs.
func (a Address) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return fmt.Errorf("address: missing full_name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	return nil
}

// Value marshals the address as JSON.
func (a Address) Value() (driver.Value, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(a)
}

// Scan decodes a JSON address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}
