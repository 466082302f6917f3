// Package reporttext builds and edits the plain-text body of a report.
package reporttext

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ContentTemplate follows the "Report del" header of a new report.
const ContentTemplate = "Zona: \nClienti visitati: \nNote generali: "

// VisitTemplate follows each "Visita n°N: " marker.
const VisitTemplate = "Cliente: \nRiassunto visita: \nObiettivo prox visita: \nProx visita entro: "

// HeaderPrefix starts the first line of every report.
const HeaderPrefix = "Report del "

// VisitMarker precedes each numbered visit block.
const VisitMarker = "Visita n°"

// DayLayout is the calendar-day form used by date inputs and filters.
const DayLayout = "2006-01-02"

var months = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

var headerLine = regexp.MustCompile(`^Report del .*(\r\n|\n|\r)`)

// FormatDate renders t as an Italian long date, e.g. "5 marzo 2024".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

// DefaultText is the body of a new report dated t.
func DefaultText(t time.Time) string {
	return HeaderPrefix + FormatDate(t) + "\n\n" + ContentTemplate
}

// VisitCount counts visit markers in text.
func VisitCount(text string) int {
	return strings.Count(text, VisitMarker)
}

// AppendVisit adds the next numbered visit block to text.
func AppendVisit(text string) string {
	return fmt.Sprintf("%s\n\n%s%d: %s", text, VisitMarker, VisitCount(text)+1, VisitTemplate)
}

// RewriteHeader replaces a leading "Report del ..." line with one for t.
// Text without such a line is returned unchanged.
func RewriteHeader(text string, t time.Time) string {
	loc := headerLine.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return HeaderPrefix + FormatDate(t) + "\n" + text[loc[1]:]
}

// ParseDay parses a YYYY-MM-DD calendar day as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.UTC)
}

// ISODate is the stored form of a calendar day: UTC midnight in ISO-8601
// with milliseconds, so its prefix before "T" is the day itself.
func ISODate(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000Z")
}

// FromISO parses a stored date back to a calendar day. Unparseable input
// falls back to its "T" prefix, then to the zero time.
func FromISO(iso string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, iso); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	day := iso
	if i := strings.IndexByte(iso, 'T'); i >= 0 {
		day = iso[:i]
	}
	t, _ := ParseDay(day)
	return t
}
