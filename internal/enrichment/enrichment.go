// Package enrichment implements the order-identifier shape rule shared by
// the normalize worker and the router's entry logic.
//
// Display-format identifiers like "D12.345.678" must be normalized and then
// resolved against the order store before backing systems can use them. An
// identifier requires enrichment iff, after stripping separators, it starts
// with the sentinel prefix and is exactly the canonical length.
package enrichment

import (
	"fmt"
	"strings"
)

const (
	// SentinelPrefix marks display-format order identifiers.
	SentinelPrefix = "D"
	// CanonicalLength is the exact length of a cleaned display-format id.
	CanonicalLength = 9
)

var separators = strings.NewReplacer(".", "", "-", "", " ", "")

// Clean strips separator characters from an identifier. Cleaning an already
// clean id is a no-op, so re-running normalization is safe.
func Clean(id string) string {
	return separators.Replace(strings.TrimSpace(id))
}

// Required reports whether an identifier needs the enrichment sub-flow.
func Required(id string) bool {
	c := Clean(id)
	return strings.HasPrefix(c, SentinelPrefix) && len(c) == CanonicalLength
}

// Validate checks that a cleaned identifier matches the display-format
// shape. The returned error explains the violation.
func Validate(clean string) error {
	if clean == "" {
		return fmt.Errorf("order id is empty")
	}
	if !strings.HasPrefix(clean, SentinelPrefix) {
		return fmt.Errorf("order id must start with %q, got %q", SentinelPrefix, clean[:1])
	}
	if len(clean) != CanonicalLength {
		return fmt.Errorf("order id must be %d characters, got %d", CanonicalLength, len(clean))
	}
	return nil
}
