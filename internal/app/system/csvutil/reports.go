// internal/app/system/csvutil/reports.go
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dalemusser/reporthub/internal/app/system/reporttext"
	"github.com/dalemusser/reporthub/internal/domain/models"
)

// ReportRow is one exported line of the saved-reports list.
type ReportRow struct {
	Day    string // YYYY-MM-DD
	Author string
	Visits int
	Text   string
}

// RowsFor builds export rows; author resolves a user id to a display name.
func RowsFor(reports []models.Report, author func(userID string) string) []ReportRow {
	rows := make([]ReportRow, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, ReportRow{
			Day:    r.Day(),
			Author: author(r.UserID),
			Visits: reporttext.VisitCount(r.Text),
			Text:   r.Text,
		})
	}
	return rows
}

var header = []string{"Data", "Autore", "Visite", "Testo"}

// WriteReports writes rows as CSV with a header line.
func WriteReports(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Day, r.Author, fmt.Sprint(r.Visits), r.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ServeReports writes rows as a CSV attachment named filename.
func ServeReports(w http.ResponseWriter, filename string, rows []ReportRow) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
	return WriteReports(w, rows)
}
