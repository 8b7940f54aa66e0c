// Package ids generates and validates the identifiers used across runs,
// fixtures, and test specs.
package ids

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reTestID  = regexp.MustCompile(`^TEST-[A-Z]+-[0-9]{3}$`)
	reRunID   = regexp.MustCompile(`^run-[0-9]{4}-[0-9]{2}-[0-9]{2}-[0-9]{3}$`)
	reInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	reDashes  = regexp.MustCompile(`-+`)
)

// NewRunID builds a run-YYYY-MM-DD-NNN identifier. seq is the 1-based
// sequence of runs already recorded for that calendar day.
func NewRunID(dateUTC string, seq int) string {
	if seq < 1 {
		seq = 1
	}
	return fmt.Sprintf("run-%s-%03d", dateUTC, seq)
}

func IsValidRunID(s string) bool {
	return reRunID.MatchString(strings.TrimSpace(s))
}

// IsValidTestID reports whether s matches TEST-XXX-NNN.
func IsValidTestID(s string) bool {
	return reTestID.MatchString(strings.TrimSpace(s))
}

// Bracketed renders the correlation token a pipeline notification is
// expected to echo back: [TEST-XXX-NNN].
func Bracketed(testID string) string {
	return "[" + testID + "]"
}

// SanitizeComponent normalizes a free-form string into a filesystem- and
// identifier-safe component: lowercase, [a-z0-9-], collapsed dashes.
func SanitizeComponent(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", "-")
	v = reInvalid.ReplaceAllString(v, "-")
	v = reDashes.ReplaceAllString(v, "-")
	return strings.Trim(v, "-")
}
