// Package reportfilter narrows a saved-report list by calendar-day range and
// author, and derives the author options shown to the administrator.
package reportfilter

import (
	"net/http"
	"sort"
	"strings"

	"github.com/dalemusser/reporthub/internal/app/system/normalize"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// UnknownAuthor labels reports whose author no longer exists.
const UnknownAuthor = "Utente Sconosciuto"

// Filter holds the list controls. Start and End are YYYY-MM-DD and both
// inclusive; empty means unbounded. UserID is honored for administrators only.
type Filter struct {
	Start  string
	End    string
	UserID string
}

// FromRequest reads start, end and user from the query string. Malformed
// dates are dropped.
func FromRequest(r *http.Request) Filter {
	return Filter{
		Start:  validDay(query.Get(r, "start")),
		End:    validDay(query.Get(r, "end")),
		UserID: normalize.QueryParam(query.Get(r, "user")),
	}
}

// IsZero reports whether no control is set.
func (f Filter) IsZero() bool {
	return f.Start == "" && f.End == "" && f.UserID == ""
}

// Apply returns the reports passing f, preserving order. The user filter is
// skipped unless isAdmin.
func (f Filter) Apply(reports []models.Report, isAdmin bool) []models.Report {
	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		day := r.Day()
		if f.Start != "" && day < f.Start {
			continue
		}
		if f.End != "" && day > f.End {
			continue
		}
		if isAdmin && f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Option is one entry of the author selector.
type Option struct {
	ID   string
	Name string
}

// AuthorOptions lists the known users who own at least one of reports,
// labelled by display name and sorted by it.
func AuthorOptions(reports []models.Report, users []models.User) []Option {
	owners := make(map[string]bool, len(reports))
	for _, r := range reports {
		owners[r.UserID] = true
	}
	var opts []Option
	for _, u := range users {
		if owners[u.ID] {
			opts = append(opts, Option{ID: u.ID, Name: u.DisplayName()})
		}
	}
	sort.SliceStable(opts, func(i, j int) bool {
		return normalize.SortKey(opts[i].Name) < normalize.SortKey(opts[j].Name)
	})
	return opts
}

// AuthorNames maps user id to display name.
func AuthorNames(users []models.User) map[string]string {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names
}

// AuthorName resolves id through names, falling back to UnknownAuthor.
func AuthorName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return UnknownAuthor
}

func validDay(s string) string {
	s = strings.TrimSpace(s)
	if len(s) != len("2006-01-02") || s[4] != '-' || s[7] != '-' {
		return ""
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return ""
		}
	}
	return s
}
