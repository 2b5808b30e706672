// Package folio formats the human-readable tracking codes printed on
// jar and batch labels. Folios are display codes only; entity identity
// is always the uuid assigned at creation.
package folio

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Prefixes used across the bank's paperwork.
const (
	PrefixJar            = "LP" // leche - pote (jar)
	PrefixBatch          = "LB" // leche - lote (batch)
	PrefixAdministration = "AD"
)

var pattern = regexp.MustCompile(`^[A-Z]{2}-\d{8}-\d{3,}$`)

// Format renders a folio like LP-20260901-007. seq is 1-based within
// the prefix and calendar day.
func Format(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, day.Format("20060102"), seq)
}

// Valid reports whether a string looks like a bank folio.
func Valid(code string) bool {
	return pattern.MatchString(code)
}

// NewID returns a collision-resistant entity identifier.
func NewID() string {
	return uuid.NewString()
}
