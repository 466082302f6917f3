package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/reporthub/internal/app/store/audit"
	"github.com/dalemusser/reporthub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
// Each value is "all" (store + zap), "db" (store only), "log" (zap only) or "off".
type Config struct {
	Auth   string // login, logout
	Admin  string // user administration
	Report string // report create, update, delete
}

// Logger provides convenience methods for logging audit events.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil, which disables "db".
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// record stamps the client address of r onto e and logs it.
func (l *Logger) record(ctx context.Context, r *http.Request, e audit.Event) {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
	}
	l.Log(ctx, e)
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration. A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryReport:
		setting = l.config.Report
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, username string) {
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		Success:   true,
		Details:   map[string]string{"username": username},
	})
}

// LoginFailed logs a rejected login; eventType is one of the login_failed_* types.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, username, reason string) {
	l.record(ctx, r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		FailureReason: reason,
		Details:       map[string]string{"username": username},
	})
}

// Logout logs a logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		Success:   true,
	})
}

// UserCreated logs creation of a user by actorID.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, userID, username string) {
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
		Details:   map[string]string{"username": username},
	})
}

// UserActiveChanged logs enabling or disabling a user.
func (l *Logger) UserActiveChanged(ctx context.Context, r *http.Request, actorID, userID string, active bool) {
	eventType := audit.EventUserDisabled
	if active {
		eventType = audit.EventUserEnabled
	}
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})
}

// UserPasswordChanged logs an administrator password reset.
func (l *Logger) UserPasswordChanged(ctx context.Context, r *http.Request, actorID, userID string) {
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserPasswordChanged,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})
}

// UserDeleted logs deletion of a user.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, userID string) {
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDeleted,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})
}

// ReportSaved logs a create (created=true) or update of a report.
func (l *Logger) ReportSaved(ctx context.Context, r *http.Request, actorID, reportKey, day string, created bool) {
	eventType := audit.EventReportUpdated
	if created {
		eventType = audit.EventReportCreated
	}
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryReport,
		EventType: eventType,
		ActorID:   actorID,
		Success:   true,
		Details:   map[string]string{"report": reportKey, "day": day},
	})
}

// ReportSaveFailed logs a failed write.
func (l *Logger) ReportSaveFailed(ctx context.Context, r *http.Request, actorID, day, reason string) {
	l.record(ctx, r, audit.Event{
		Category:      audit.CategoryReport,
		EventType:     audit.EventReportSaveFailed,
		ActorID:       actorID,
		FailureReason: reason,
		Details:       map[string]string{"day": day},
	})
}

// ReportDeleted logs deletion of a report.
func (l *Logger) ReportDeleted(ctx context.Context, r *http.Request, actorID, reportKey string) {
	l.record(ctx, r, audit.Event{
		Category:  audit.CategoryReport,
		EventType: audit.EventReportDeleted,
		ActorID:   actorID,
		Success:   true,
		Details:   map[string]string{"report": reportKey},
	})
}
