// internal/app/features/reports/editor.go
package reports

import (
	"errors"
	"net/http"
	"net/url"

	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/docexport"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/app/system/reporttext"
	"github.com/dalemusser/reporthub/internal/app/system/saveflow"
	"github.com/dalemusser/reporthub/internal/app/system/timeouts"
	"github.com/dalemusser/reporthub/internal/app/system/timezones"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"go.uber.org/zap"
)

// ServeNew starts a fresh draft dated today in the business time zone.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	today := timezones.Today(h.Now(), h.Location)
	d := drafts.Draft{
		Date: reporttext.ISODate(today),
		Text: reporttext.DefaultText(today),
	}
	h.Drafts.Put(h.SessionMgr.DraftID(r), d)
	if err := h.SessionMgr.SetEditKey(w, r, ""); err != nil {
		h.Log.Warn("clear edit key failed", zap.Error(err))
	}
	h.renderEditor(w, r, editorData{}, d, false)
}

// ServeEdit loads an existing report into the session draft and makes it
// the edit target. The report keeps its original owner when saved.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r, chiKey(r))
	if !ok {
		return
	}
	d := drafts.Draft{Date: rep.Date, Text: rep.Text, OwnerID: rep.UserID}
	h.Drafts.Put(h.SessionMgr.DraftID(r), d)
	if err := h.SessionMgr.SetEditKey(w, r, rep.Key); err != nil {
		h.ErrLog.LogServerError(w, r, "set edit key failed", err, "Non è stato possibile aprire il report.", "/reports")
		return
	}
	h.renderEditor(w, r, editorData{}, d, true)
}

// HandleEditor applies the submitted form to the draft, then performs the
// requested action.
func (h *Handler) HandleEditor(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse editor form failed", err, "Richiesta non valida.", "/reports/new")
		return
	}
	user, _ := auth.CurrentUser(r)
	draftID := h.SessionMgr.DraftID(r)
	editKey := h.SessionMgr.EditKey(r)

	d, vm := h.applyForm(r, draftID)
	action := r.PostForm.Get("action")

	switch action {
	case actionDiscard:
		h.Drafts.Discard(draftID)
		if err := h.SessionMgr.SetEditKey(w, r, ""); err != nil {
			h.Log.Warn("clear edit key failed", zap.Error(err))
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return

	case actionEditConflict:
		key := r.PostForm.Get("conflict_key")
		if key == "" {
			break
		}
		h.Drafts.Discard(draftID)
		http.Redirect(w, r, "/reports/"+url.PathEscape(key)+"/edit", http.StatusSeeOther)
		return

	case actionAddVisit:
		d.Text = reporttext.AppendVisit(d.Text)

	case actionDownload:
		h.Drafts.Put(draftID, d)
		if err := docexport.Write(w, d.Date, d.Text); err != nil {
			h.Log.Warn("draft download write failed", zap.Error(err))
		}
		return

	case actionSave, actionRetry:
		h.Drafts.Put(draftID, d)
		h.save(w, r, user, editKey, draftID, d)
		return
	}

	// change_date, dismiss and unknown actions just redisplay the draft.
	h.Drafts.Put(draftID, d)
	h.renderEditor(w, r, vm, d, editKey != "")
}

// applyForm merges the posted date and text into the session draft. A
// changed date rewrites the "Report del" header line.
func (h *Handler) applyForm(r *http.Request, draftID string) (drafts.Draft, editorData) {
	var vm editorData

	d, ok := h.Drafts.Get(draftID)
	if !ok {
		today := timezones.Today(h.Now(), h.Location)
		d = drafts.Draft{Date: reporttext.ISODate(today), Text: reporttext.DefaultText(today)}
	}
	if _, posted := r.PostForm["text"]; posted {
		d.Text = r.PostForm.Get("text")
	}

	if day := r.PostForm.Get("date"); day != "" && day != models.DayOf(d.Date) {
		t, err := reporttext.ParseDay(day)
		if err != nil {
			vm.Error = MsgInvalidDate
			return d, vm
		}
		d.Date = reporttext.ISODate(t)
		d.Text = reporttext.RewriteHeader(d.Text, t)
	}
	return d, vm
}

// save runs the save workflow. The report is stored for its owner: the
// original author when editing, otherwise the signed-in user.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, user *auth.SessionUser, editKey, draftID string, d drafts.Draft) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "save report")
	defer cancel()

	owner := h.ownerOf(r, user, editKey, d)
	res := saveflow.Save(ctx, h.Reports, owner, editKey, reportstore.Draft{Date: d.Date, Text: d.Text})
	h.Metrics.ReportSave(res.Outcome.String())

	switch res.Outcome {
	case saveflow.Saved:
		h.AuditLog.ReportSaved(r.Context(), r, user.ID, res.Report.Key, res.Report.Day(), res.Created)
		h.Drafts.Discard(draftID)
		if err := h.SessionMgr.SetEditKey(w, r, ""); err != nil {
			h.Log.Warn("clear edit key failed", zap.Error(err))
		}
		http.Redirect(w, r, "/reports?saved=1", http.StatusSeeOther)

	case saveflow.Conflict:
		c := res.Conflicting
		h.renderEditor(w, r, editorData{
			Modal:        modalConflict,
			ConflictKey:  c.Key,
			ConflictDate: reporttext.FormatDate(reporttext.FromISO(c.Date)),
		}, d, editKey != "")

	default:
		h.Log.Error("report save failed",
			zap.String("user_id", user.ID),
			zap.String("owner_id", owner),
			zap.String("edit_key", editKey),
			zap.Error(res.Err))
		h.AuditLog.ReportSaveFailed(r.Context(), r, user.ID, models.DayOf(d.Date), failureReason(res.Err))
		h.renderEditor(w, r, editorData{Modal: modalFailed, Message: MsgSaveFailed}, d, editKey != "")
	}
}

func (h *Handler) ownerOf(r *http.Request, user *auth.SessionUser, editKey string, d drafts.Draft) string {
	if editKey == "" {
		return user.ID
	}
	if d.OwnerID != "" {
		return d.OwnerID
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load edit target")
	defer cancel()
	if rep, err := h.Reports.Get(ctx, editKey); err == nil && rep.UserID != "" {
		return rep.UserID
	}
	return user.ID
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, reportstore.ErrNotFound):
		return "not_found"
	case errors.Is(err, reportstore.ErrDateConflict):
		return "date_conflict"
	default:
		return "store_error"
	}
}

func (h *Handler) renderEditor(w http.ResponseWriter, r *http.Request, vm editorData, d drafts.Draft, editing bool) {
	title := "Nuovo Report"
	if editing {
		title = "Modifica Report"
	}
	vm.BaseVM = viewdata.NewBaseVM(r, title, "/reports")
	vm.Day = models.DayOf(d.Date)
	vm.Text = d.Text
	vm.Editing = editing
	vm.Visits = reporttext.VisitCount(d.Text)
	h.Views.Render(w, r, "report_editor", vm)
}
