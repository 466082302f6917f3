// Package normalize canonicalizes user-entered values before they are
// compared or stored.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Username trims and lower-cases a login name. Accents are kept, so
// "josé" and "jose" are different accounts.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// SortKey folds case and diacritics for ordering names in lists. It is
// never stored or used for lookups.
func SortKey(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// QueryParam trims a query-string value and maps the "all" sentinel used by
// filter selects to "".
func QueryParam(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
