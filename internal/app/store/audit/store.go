package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
)

// Collection holds persisted audit events.
const Collection = "audit_events"

// tsLayout is fixed width so string order is time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Event categories
const (
	CategoryAuth   = "auth"
	CategoryAdmin  = "admin"
	CategoryReport = "report"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLogout                   = "logout"
)

// Admin event types
const (
	EventUserCreated         = "user_created"
	EventUserEnabled         = "user_enabled"
	EventUserDisabled        = "user_disabled"
	EventUserPasswordChanged = "user_password_changed"
	EventUserDeleted         = "user_deleted"
)

// Report event types
const (
	EventReportCreated    = "report_created"
	EventReportUpdated    = "report_updated"
	EventReportDeleted    = "report_deleted"
	EventReportSaveFailed = "report_save_failed"
)

// Event represents an audit event.
type Event struct {
	ID        string
	Timestamp time.Time

	Category  string
	EventType string

	UserID  string // affected user
	ActorID string // who performed the action

	Success       bool
	FailureReason string
	IP            string
	Details       map[string]string
}

type Store struct {
	db docstore.Client
}

func New(db docstore.Client) *Store {
	return &Store{db: db}
}

// Log persists e, stamping the time if unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	details := make(map[string]any, len(e.Details))
	for k, v := range e.Details {
		details[k] = v
	}
	_, err := s.db.Create(ctx, Collection, map[string]any{
		"timestamp":     e.Timestamp.UTC().Format(tsLayout),
		"category":      e.Category,
		"eventType":     e.EventType,
		"userId":        e.UserID,
		"actorId":       e.ActorID,
		"success":       e.Success,
		"failureReason": e.FailureReason,
		"ip":            e.IP,
		"details":       details,
	})
	if err != nil {
		return fmt.Errorf("log audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 means all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	docs, err := s.db.Find(ctx, docstore.Query{Collection: Collection, OrderBy: "timestamp", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out, nil
}

// QueryFilter narrows Query. Zero fields match everything. End is
// exclusive.
type QueryFilter struct {
	Category  string
	EventType string
	Start     time.Time
	End       time.Time
	Limit     int
	Offset    int
}

func (f QueryFilter) match(e Event) bool {
	switch {
	case f.Category != "" && e.Category != f.Category:
		return false
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case !f.Start.IsZero() && e.Timestamp.Before(f.Start):
		return false
	case !f.End.IsZero() && !e.Timestamp.Before(f.End):
		return false
	}
	return true
}

// Query returns one page of matching events, newest first, and the number
// of matches overall. Filtering happens here rather than in the backend so
// Firestore needs no composite indexes.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, int, error) {
	all, err := s.Recent(ctx, 0)
	if err != nil {
		return nil, 0, err
	}
	matched := all[:0]
	for _, e := range all {
		if f.match(e) {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= total {
			return []Event{}, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func fromDoc(d docstore.Document) Event {
	ts, _ := time.Parse(time.RFC3339Nano, d.String("timestamp"))
	e := Event{
		ID:            d.ID,
		Timestamp:     ts,
		Category:      d.String("category"),
		EventType:     d.String("eventType"),
		UserID:        d.String("userId"),
		ActorID:       d.String("actorId"),
		Success:       d.Bool("success"),
		FailureReason: d.String("failureReason"),
		IP:            d.String("ip"),
	}
	if raw, ok := d.Fields["details"].(map[string]any); ok {
		e.Details = make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				e.Details[k] = s
			}
		}
	}
	return e
}
