// internal/domain/models/report.go
package models

import "strings"

// Report is a dated free-text visit report owned by one user.
//
// Date is an ISO-8601 date-time string. Only its calendar-day part is
// meaningful; see Day.
type Report struct {
	Key    string `json:"key"`
	Date   string `json:"date"`
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

// Day returns the calendar-day part of Date (the text before the "T"
// separator), ignoring time-of-day and zone offset.
func (r Report) Day() string {
	return DayOf(r.Date)
}

// DayOf returns the calendar-day prefix of an ISO-8601 date-time string.
func DayOf(iso string) string {
	if i := strings.IndexByte(iso, 'T'); i >= 0 {
		return iso[:i]
	}
	return iso
}
