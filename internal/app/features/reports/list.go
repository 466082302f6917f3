// internal/app/features/reports/list.go
package reports

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/csvutil"
	"github.com/dalemusser/reporthub/internal/app/system/docexport"
	"github.com/dalemusser/reporthub/internal/app/system/reportfilter"
	"github.com/dalemusser/reporthub/internal/app/system/reporttext"
	"github.com/dalemusser/reporthub/internal/app/system/timeouts"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const previewLen = 120

// ServeList renders the saved reports visible to the current user.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	f := reportfilter.FromRequest(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list reports")
	defer cancel()

	reports, err := h.Reports.List(ctx, user.ID, user.IsAdmin)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list reports failed", err, MsgLoadFailed, "/")
		return
	}
	names := map[string]string{user.ID: user.Name}
	var users []models.User
	if user.IsAdmin {
		users = h.listUsers(ctx)
		names = reportfilter.AuthorNames(users)
	}

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Report Salvati", "/"),
		Rows:       buildRows(f.Apply(reports, user.IsAdmin), names, user.IsAdmin),
		Filter:     f,
		ShowAuthor: user.IsAdmin,
		StreamURL:  withFilter("/reports/stream", f),
		ExportURL:  withFilter("/reports/export.csv", f),
	}
	if user.IsAdmin {
		data.Authors = reportfilter.AuthorOptions(reports, users)
	}
	switch {
	case query.Get(r, "saved") != "":
		data.Flash = FlashSaved
	case query.Get(r, "deleted") != "":
		data.Flash = FlashDeleted
	}
	h.Views.Render(w, r, "reports_list", data)
}

// ServeCSV exports the filtered list.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	f := reportfilter.FromRequest(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "export reports")
	defer cancel()

	reports, err := h.Reports.List(ctx, user.ID, user.IsAdmin)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "export reports failed", err, MsgLoadFailed, "/reports")
		return
	}
	names := h.authorNames(ctx, user)
	rows := csvutil.RowsFor(f.Apply(reports, user.IsAdmin), func(id string) string {
		return reportfilter.AuthorName(names, id)
	})
	if err := csvutil.ServeReports(w, csvFilename(f), rows); err != nil {
		h.Log.Warn("csv export write failed", zap.Error(err))
	}
}

// ServeDownload exports one saved report as a word-processor document.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r, chiKey(r))
	if !ok {
		return
	}
	if err := docexport.Write(w, rep.Date, rep.Text); err != nil {
		h.Log.Warn("report download write failed", zap.String("report", rep.Key), zap.Error(err))
	}
}

// ServeDeleteConfirm asks for confirmation before deleting.
func (h *Handler) ServeDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r, chiKey(r))
	if !ok {
		return
	}
	h.renderDelete(w, r, rep, "")
}

// HandleDelete removes the report. Deleting the report currently being
// edited also clears the edit target.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	rep, ok := h.loadReport(w, r, chiKey(r))
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete report")
	defer cancel()

	if err := h.Reports.Delete(ctx, rep.Key); err != nil {
		h.Log.Error("delete report failed", zap.String("report", rep.Key), zap.Error(err))
		h.renderDelete(w, r, rep, MsgDeleteFailed)
		return
	}
	h.AuditLog.ReportDeleted(r.Context(), r, user.ID, rep.Key)

	if h.SessionMgr.EditKey(r) == rep.Key {
		h.Drafts.Discard(h.SessionMgr.DraftID(r))
		if err := h.SessionMgr.SetEditKey(w, r, ""); err != nil {
			h.Log.Warn("clear edit key failed", zap.Error(err))
		}
	}
	http.Redirect(w, r, "/reports?deleted=1", http.StatusSeeOther)
}

func (h *Handler) renderDelete(w http.ResponseWriter, r *http.Request, rep models.Report, errMsg string) {
	user, _ := auth.CurrentUser(r)
	data := deleteData{
		BaseVM:    viewdata.NewBaseVM(r, "Elimina Report", "/reports"),
		Key:       rep.Key,
		DateLabel: reporttext.FormatDate(reporttext.FromISO(rep.Date)),
		Message:   MsgDeleteConfirm,
		Error:     errMsg,
	}
	if user.IsAdmin {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load report author")
		defer cancel()
		data.Author = reportfilter.AuthorName(h.authorNames(ctx, user), rep.UserID)
	}
	h.Views.Render(w, r, "report_delete", data)
}

// loadReport fetches key and checks the current user may act on it. Reports
// of other users are reported as missing to non-administrators.
func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request, key string) (models.Report, bool) {
	user, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load report")
	defer cancel()

	rep, err := h.Reports.Get(ctx, key)
	switch {
	case errors.Is(err, reportstore.ErrNotFound):
		h.ErrLog.NotFound(w, r, MsgNotFound, "/reports")
		return models.Report{}, false
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load report failed", err, MsgLoadFailed, "/reports")
		return models.Report{}, false
	}
	if !user.IsAdmin && rep.UserID != user.ID {
		h.ErrLog.NotFound(w, r, MsgNotFound, "/reports")
		return models.Report{}, false
	}
	return rep, true
}

// authorNames maps user ids to display names for an administrator. Other
// users only ever see their own reports, so no lookup is needed.
func (h *Handler) authorNames(ctx context.Context, user *auth.SessionUser) map[string]string {
	if !user.IsAdmin {
		return map[string]string{user.ID: user.Name}
	}
	return reportfilter.AuthorNames(h.listUsers(ctx))
}

// listUsers fails open: names fall back to the unknown-author label.
func (h *Handler) listUsers(ctx context.Context) []models.User {
	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Warn("list users for author names failed", zap.Error(err))
		return nil
	}
	return users
}

func chiKey(r *http.Request) string {
	return chi.URLParam(r, "key")
}

func buildRows(reports []models.Report, names map[string]string, withAuthor bool) []listRow {
	rows := make([]listRow, 0, len(reports))
	for _, rep := range reports {
		row := listRow{
			Key:       rep.Key,
			Day:       rep.Day(),
			DateLabel: reporttext.FormatDate(reporttext.FromISO(rep.Date)),
			Visits:    reporttext.VisitCount(rep.Text),
			Preview:   preview(rep.Text),
		}
		if withAuthor {
			row.Author = reportfilter.AuthorName(names, rep.UserID)
		}
		rows = append(rows, row)
	}
	return rows
}

// preview is the first non-header line of text, shortened.
func preview(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, reporttext.HeaderPrefix) {
			continue
		}
		if r := []rune(line); len(r) > previewLen {
			return string(r[:previewLen]) + "…"
		}
		return line
	}
	return ""
}

func withFilter(path string, f reportfilter.Filter) string {
	v := url.Values{}
	if f.Start != "" {
		v.Set("start", f.Start)
	}
	if f.End != "" {
		v.Set("end", f.End)
	}
	if f.UserID != "" {
		v.Set("user", f.UserID)
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func csvFilename(f reportfilter.Filter) string {
	name := "report"
	if f.Start != "" {
		name += "_dal_" + f.Start
	}
	if f.End != "" {
		name += "_al_" + f.End
	}
	return name + ".csv"
}
