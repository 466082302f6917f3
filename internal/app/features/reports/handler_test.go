package reports

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/reporthub/internal/app/features/errors"
	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"github.com/dalemusser/reporthub/internal/app/system/auditlog"
	"github.com/dalemusser/reporthub/internal/app/system/auth"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/app/system/metrics"
	"github.com/dalemusser/reporthub/internal/app/system/timezones"
	"github.com/dalemusser/reporthub/internal/testutil"
	"go.uber.org/zap"
)

const draftID = "draft-1"

type testEnv struct {
	h       *Handler
	db      *docstore.MemoryStore
	views   *testutil.Views
	reports *reportstore.Store
	users   *userstore.Store
	sm      *auth.SessionManager
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestStore(t)
	views := &testutil.Views{}
	sm := testutil.NewSessionManager(t)
	users := userstore.New(db, logger)
	reports := reportstore.New(db, logger)

	loc, err := timezones.Load(timezones.Default)
	if err != nil {
		t.Fatalf("load time zone: %v", err)
	}
	h := NewHandler(
		reports,
		users,
		sm,
		drafts.New(time.Hour),
		uierrors.NewErrorLogger(views, logger),
		auditlog.New(nil, logger, auditlog.Config{}),
		metrics.New(false),
		views,
		loc,
		logger,
	)
	h.Now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	h.KeepAlive = 50 * time.Millisecond

	env := &testEnv{h: h, db: db, views: views, reports: reports, users: users, sm: sm}

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), "u1", draftID); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	env.cookies = rec.Result().Cookies()
	return env
}

// request builds a request carrying the current session cookies.
func (e *testEnv) request(method, target string, form url.Values, u *auth.SessionUser) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	return testutil.WithUser(req, u)
}

// keep records any session cookie set by the response.
func (e *testEnv) keep(rec *httptest.ResponseRecorder) {
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		e.cookies = cs
	}
}

func (e *testEnv) do(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fn(rec, req)
	e.keep(rec)
	return rec
}

func (e *testEnv) editor(t *testing.T) editorData {
	t.Helper()
	last := e.views.Last()
	if last.Name != "report_editor" {
		t.Fatalf("template: got %q, want report_editor", last.Name)
	}
	return last.Data.(editorData)
}

var mario = testutil.StandardUser("u1", "mario")

func TestServeNew_DefaultDraft(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	vm := env.editor(t)
	if vm.Day != "2024-03-05" {
		t.Errorf("Day: got %q", vm.Day)
	}
	if !strings.HasPrefix(vm.Text, "Report del 5 marzo 2024\n\nZona: ") {
		t.Errorf("Text: got %q", vm.Text)
	}
	if vm.Editing {
		t.Error("new report should not be in edit mode")
	}
}

func TestHandleEditor_AddVisit(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	form := url.Values{"action": {"add_visit"}, "date": {"2024-03-05"}, "text": {"Report del 5 marzo 2024\n\nVisita n°1: a"}}
	env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	vm := env.editor(t)
	if !strings.HasSuffix(vm.Text, "\n\nVisita n°2: Cliente: \nRiassunto visita: \nObiettivo prox visita: \nProx visita entro: ") {
		t.Errorf("Text: got %q", vm.Text)
	}
	if vm.Visits != 2 {
		t.Errorf("Visits: got %d, want 2", vm.Visits)
	}
}

func TestHandleEditor_ChangeDateRewritesHeader(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	form := url.Values{"action": {"change_date"}, "date": {"2024-12-25"}, "text": {"Report del 5 marzo 2024\n\nZona: Nord"}}
	env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	vm := env.editor(t)
	if vm.Day != "2024-12-25" {
		t.Errorf("Day: got %q", vm.Day)
	}
	if vm.Text != "Report del 25 dicembre 2024\n\nZona: Nord" {
		t.Errorf("Text: got %q", vm.Text)
	}
}

func TestHandleEditor_InvalidDateKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	form := url.Values{"action": {"change_date"}, "date": {"05/03/2024"}}
	env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	vm := env.editor(t)
	if vm.Error != MsgInvalidDate || vm.Day != "2024-03-05" {
		t.Errorf("got error %q day %q", vm.Error, vm.Day)
	}
}

func TestHandleEditor_SaveNew(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	form := url.Values{"action": {"save"}, "date": {"2024-03-05"}, "text": {"Report del 5 marzo 2024\n\nZona: Nord"}}
	rec := env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/reports?saved=1" {
		t.Fatalf("expected redirect to list, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	list, err := env.reports.List(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 report, got %d", len(list))
	}
	if list[0].Date != "2024-03-05T00:00:00.000Z" || list[0].UserID != "u1" {
		t.Errorf("stored %+v", list[0])
	}
	if _, ok := env.h.Drafts.Get(draftID); ok {
		t.Error("draft should be discarded after save")
	}
}

func TestHandleEditor_SaveConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing, err := env.reports.Save(ctx, "u1", reportstore.Draft{Date: "2024-03-05T10:00:00.000Z", Text: "old"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	form := url.Values{"action": {"save"}, "date": {"2024-03-05"}, "text": {"new"}}
	env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	vm := env.editor(t)
	if vm.Modal != modalConflict {
		t.Fatalf("Modal: got %q, want conflict", vm.Modal)
	}
	if vm.ConflictKey != existing.Key {
		t.Errorf("ConflictKey: got %q, want %q", vm.ConflictKey, existing.Key)
	}
	if vm.ConflictDate != "5 marzo 2024" {
		t.Errorf("ConflictDate: got %q", vm.ConflictDate)
	}

	// Choosing to edit the existing report switches the target.
	form = url.Values{"action": {"edit_conflict"}, "conflict_key": {existing.Key}}
	rec := env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))
	if want := "/reports/" + existing.Key + "/edit"; rec.Header().Get("Location") != want {
		t.Errorf("Location: got %q, want %q", rec.Header().Get("Location"), want)
	}
	if _, ok := env.h.Drafts.Get(draftID); ok {
		t.Error("draft should be discarded when switching to the conflicting report")
	}
}

func TestHandleEditor_FailureThenRetry(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	env.db.SetOutage(errors.New("offline"))
	form := url.Values{"action": {"save"}, "date": {"2024-03-05"}, "text": {"testo da salvare"}}
	env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	vm := env.editor(t)
	if vm.Modal != modalFailed || vm.Message != MsgSaveFailed {
		t.Fatalf("got modal %q message %q", vm.Modal, vm.Message)
	}

	// Retry without re-posting the text: the draft carries it.
	env.db.SetOutage(nil)
	rec := env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", url.Values{"action": {"retry"}}, mario))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("retry: expected redirect, got %d", rec.Code)
	}
	list, _ := env.reports.List(context.Background(), "u1", false)
	if len(list) != 1 || list[0].Text != "testo da salvare" {
		t.Errorf("stored %+v", list)
	}
}

func TestHandleEditor_DownloadDraft(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeNew, env.request("GET", "/reports/new", nil, mario))

	form := url.Values{"action": {"download"}, "date": {"2024-03-05"}, "text": {"Report del 5 marzo 2024"}}
	rec := env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, mario))

	if ct := rec.Header().Get("Content-Type"); ct != "application/msword" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Report 05-03-2024.doc") {
		t.Errorf("Content-Disposition: got %q", cd)
	}
}

func TestEdit_AdminKeepsOriginalOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep, _ := env.reports.Save(ctx, "u2", reportstore.Draft{Date: "2024-03-01T00:00:00.000Z", Text: "Report del 1 marzo 2024"})
	admin := testutil.AdminUser("admin")

	req := testutil.WithChiURLParam(env.request("GET", "/reports/"+rep.Key+"/edit", nil, admin), "key", rep.Key)
	env.do(env.h.ServeEdit, req)
	if vm := env.editor(t); !vm.Editing {
		t.Fatal("expected edit mode")
	}

	form := url.Values{"action": {"save"}, "date": {"2024-03-01"}, "text": {"Report del 1 marzo 2024\n\nZona: Sud"}}
	rec := env.do(env.h.HandleEditor, env.request("POST", "/reports/editor", form, admin))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}

	got, err := env.reports.Get(ctx, rep.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "u2" {
		t.Errorf("owner: got %q, want u2", got.UserID)
	}
	if !strings.HasSuffix(got.Text, "Zona: Sud") {
		t.Errorf("text not updated: %q", got.Text)
	}
	if env.sm.EditKey(env.request("GET", "/", nil, admin)) != "" {
		t.Error("edit key should be cleared after save")
	}
}

func TestEdit_OtherUsersReportIsHidden(t *testing.T) {
	env := newTestEnv(t)
	rep, _ := env.reports.Save(context.Background(), "u2", reportstore.Draft{Date: "2024-03-01T00:00:00.000Z", Text: "x"})

	req := testutil.WithChiURLParam(env.request("GET", "/", nil, mario), "key", rep.Key)
	rec := env.do(env.h.ServeEdit, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func seedReports(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	u2, err := env.users.Add(ctx, "luigi", "Luigi Verdi", "secret")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, r := range []struct{ user, date string }{
		{"u1", "2024-03-01T00:00:00.000Z"},
		{"u1", "2024-03-05T00:00:00.000Z"},
		{u2.ID, "2024-03-03T00:00:00.000Z"},
		{"gone", "2024-03-04T00:00:00.000Z"},
	} {
		if _, err := env.reports.Save(ctx, r.user, reportstore.Draft{Date: r.date, Text: "Report\n\nVisita n°1: x"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
}

func listOf(t *testing.T, env *testEnv) listData {
	t.Helper()
	last := env.views.Last()
	if last.Name != "reports_list" {
		t.Fatalf("template: got %q, want reports_list", last.Name)
	}
	return last.Data.(listData)
}

func TestServeList_OwnReportsOnly(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)

	env.do(env.h.ServeList, env.request("GET", "/reports", nil, mario))
	data := listOf(t, env)

	if len(data.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(data.Rows))
	}
	if data.Rows[0].Day != "2024-03-05" || data.Rows[1].Day != "2024-03-01" {
		t.Errorf("order: %s, %s", data.Rows[0].Day, data.Rows[1].Day)
	}
	if data.ShowAuthor || data.Rows[0].Author != "" {
		t.Error("authors are shown to the administrator only")
	}
}

func TestServeList_AdminFiltersAndAuthors(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)
	admin := testutil.AdminUser("admin")

	env.do(env.h.ServeList, env.request("GET", "/reports?start=2024-03-03&end=2024-03-05", nil, admin))
	data := listOf(t, env)

	if len(data.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(data.Rows))
	}
	authors := map[string]string{}
	for _, r := range data.Rows {
		authors[r.Day] = r.Author
	}
	if authors["2024-03-03"] != "Luigi Verdi" {
		t.Errorf("author: got %q", authors["2024-03-03"])
	}
	if authors["2024-03-04"] != "Utente Sconosciuto" {
		t.Errorf("unknown author: got %q", authors["2024-03-04"])
	}
	if len(data.Authors) != 1 || data.Authors[0].Name != "Luigi Verdi" {
		t.Errorf("author options: %+v", data.Authors)
	}
	if data.StreamURL != "/reports/stream?end=2024-03-05&start=2024-03-03" {
		t.Errorf("StreamURL: got %q", data.StreamURL)
	}
}

func TestServeList_Flash(t *testing.T) {
	env := newTestEnv(t)
	env.do(env.h.ServeList, env.request("GET", "/reports?saved=1", nil, mario))
	if got := listOf(t, env).Flash; got != FlashSaved {
		t.Errorf("Flash: got %q", got)
	}
}

func TestServeCSV(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)

	rec := env.do(env.h.ServeCSV, env.request("GET", "/reports/export.csv?start=2024-03-02", nil, mario))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type: got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "Data,Autore,Visite,Testo" {
		t.Errorf("header: got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2024-03-05,mario,1,") {
		t.Errorf("row: got %q", lines[1])
	}
}

func TestDeleteFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep, _ := env.reports.Save(ctx, "u1", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z", Text: "x"})

	req := testutil.WithChiURLParam(env.request("GET", "/", nil, mario), "key", rep.Key)
	env.do(env.h.ServeDeleteConfirm, req)
	if last := env.views.Last(); last.Name != "report_delete" || last.Data.(deleteData).Message != MsgDeleteConfirm {
		t.Fatalf("confirm page: %+v", last)
	}

	req = testutil.WithChiURLParam(env.request("POST", "/", url.Values{}, mario), "key", rep.Key)
	rec := env.do(env.h.HandleDelete, req)
	if rec.Header().Get("Location") != "/reports?deleted=1" {
		t.Errorf("Location: got %q", rec.Header().Get("Location"))
	}
	if _, err := env.reports.Get(ctx, rep.Key); !errors.Is(err, reportstore.ErrNotFound) {
		t.Errorf("expected report gone, got %v", err)
	}
}

func TestServeDownload(t *testing.T) {
	env := newTestEnv(t)
	rep, _ := env.reports.Save(context.Background(), "u1", reportstore.Draft{Date: "2024-03-05T00:00:00.000Z", Text: "Report del 5 marzo 2024"})

	req := testutil.WithChiURLParam(env.request("GET", "/", nil, mario), "key", rep.Key)
	rec := env.do(env.h.ServeDownload, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<b>Report del 5 marzo 2024</b>") {
		t.Errorf("body missing bold header: %s", rec.Body.String())
	}
}

// readEvent returns the data of the next event named name.
func readEvent(t *testing.T, sc *bufio.Scanner, name string) string {
	t.Helper()
	var event string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == name:
			return strings.TrimPrefix(line, "data: ")
		case line == "":
			event = ""
		}
	}
	t.Fatalf("stream ended before %q event: %v", name, sc.Err())
	return ""
}

func TestServeStream_PushesFullReplacement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, err := env.users.Add(ctx, "mario", "Mario Rossi", "secret")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	me := &auth.SessionUser{ID: u.ID, Username: u.Username, Name: u.DisplayName()}
	env.reports.Save(ctx, u.ID, reportstore.Draft{Date: "2024-03-01T00:00:00.000Z", Text: "a"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.h.ServeStream(w, testutil.WithUser(r, me))
	}))
	defer srv.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, "GET", srv.URL+"/reports/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type: got %q", ct)
	}
	sc := bufio.NewScanner(resp.Body)

	if first := readEvent(t, sc, eventReports); !strings.Contains(first, `"count":1`) {
		t.Errorf("first push: %s", first)
	}

	env.reports.Save(ctx, u.ID, reportstore.Draft{Date: "2024-03-02T00:00:00.000Z", Text: "b"})
	if second := readEvent(t, sc, eventReports); !strings.Contains(second, `"count":2`) {
		t.Errorf("second push: %s", second)
	}
}

func TestServeStream_EndsWhenUserDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.users.Add(ctx, "mario", "", "secret")
	me := auth.NewSessionUser(u)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.h.ServeStream(w, testutil.WithUser(r, me))
	}))
	defer srv.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)
	readEvent(t, sc, eventReports)

	inactive := false
	if err := env.users.Update(ctx, u.ID, userstore.UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := readEvent(t, sc, eventEnded); got != "/" {
		t.Errorf("session-ended data: got %q", got)
	}
}
