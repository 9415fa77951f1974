package enums

import (
	"fmt"
	"slices"
	"strings"
)

// oneOf reports whether v is listed in known.
func oneOf[T ~string](v T, known []T) bool {
	return slices.Contains(known, v)
}

// parse matches raw against known after trimming and lower-casing it. kind
// names the enum in the error message.
func parse[T ~string](raw, kind string, known []T) (T, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range known {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
