// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/reporthub/internal/app/store/audit"
	"github.com/dalemusser/reporthub/internal/app/system/reportfilter"
	"github.com/dalemusser/reporthub/internal/app/system/timeouts"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// ServeList handles GET /audit: recorded events, newest first, filtered by
// category, event type and day range.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit log list")
	defer cancel()

	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}

	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))
	startDate := strings.TrimSpace(query.Get(r, "start_date"))
	endDate := strings.TrimSpace(query.Get(r, "end_date"))

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	if t, err := time.ParseInLocation(dayLayout, startDate, loc); err == nil {
		filter.Start = t
	} else {
		startDate = ""
	}
	if t, err := time.ParseInLocation(dayLayout, endDate, loc); err == nil {
		filter.End = t.AddDate(0, 0, 1)
	} else {
		endDate = ""
	}

	events, total, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, MsgLoadFailed, "/")
		return
	}

	names := map[string]string{}
	if users, err := h.Users.List(ctx); err != nil {
		h.Log.Warn("list users for audit names failed", zap.Error(err))
	} else {
		names = reportfilter.AuthorNames(users)
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			When:       e.Timestamp.In(loc).Format("02/01/2006 15:04:05"),
			Category:   e.Category,
			EventType:  e.EventType,
			ActorName:  nameOf(names, e.ActorID),
			TargetName: nameOf(names, e.UserID),
			IP:         e.IP,
			Success:    e.Success,
			Reason:     e.FailureReason,
			Details:    formatDetails(e.Details),
		})
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	data := listData{
		BaseVM:     viewdata.NewBaseVM(r, "Registro Attività", "/"),
		Items:      items,
		Category:   category,
		EventType:  eventType,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if data.HasPrev {
		data.PrevURL = pageURL(r, page-1)
	}
	if data.HasNext {
		data.NextURL = pageURL(r, page+1)
	}
	h.Views.Render(w, r, "audit_list", data)
}

// nameOf resolves a user id; ids of deleted users are shown as they are.
func nameOf(names map[string]string, id string) string {
	if id == "" {
		return ""
	}
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

func formatDetails(d map[string]string) string {
	if len(d) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, ", ")
}

func pageURL(r *http.Request, page int) string {
	v := url.Values{}
	for k, vals := range r.URL.Query() {
		if k != "page" {
			v[k] = vals
		}
	}
	v.Set("page", strconv.Itoa(page))
	return "/audit?" + v.Encode()
}
