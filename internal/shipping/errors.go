package shipping

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ResolutionError reports rate fields that neither the country override nor
// the vendor defaults provide.
type ResolutionError struct {
	VendorID  uuid.UUID
	CountryID uuid.UUID
	Fields    []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("shipping rates unresolved for vendor %s country %s: missing %s",
		e.VendorID, e.CountryID, strings.Join(e.Fields, ", "))
}

func invalidField(field, reason string) error {
	return pkgerrors.Validation(fmt.Sprintf("%s %s", field, reason)).
		WithDetails(map[string]string{"field": field})
}
