package shipping

import "github.com/google/uuid"

// FreeShipping is a product's free-shipping configuration. The zero value
// means the product never ships free.
type FreeShipping struct {
	AllCountries bool
	Countries    []uuid.UUID
}

// Eligible reports whether shipping to countryID is waived.
func (f FreeShipping) Eligible(countryID uuid.UUID) bool {
	if f.AllCountries {
		return true
	}
	for _, id := range f.Countries {
		if id == countryID {
			return true
		}
	}
	return false
}
