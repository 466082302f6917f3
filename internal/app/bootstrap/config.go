// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	"github.com/dalemusser/reporthub/internal/app/system/drafts"
	"github.com/dalemusser/reporthub/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the report hub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: REPORTHUB_MONGO_URI, REPORTHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: docstore.BackendMongo, Desc: "Document store: 'mongo', 'firestore' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "reporthub", Desc: "MongoDB database name"},
	{Name: "firestore_project_id", Default: "", Desc: "Firestore project id"},
	{Name: "firestore_credentials_file", Default: "", Desc: "Service account JSON file (blank uses application default credentials)"},
	{Name: "listen_poll_interval", Default: "2s", Desc: "Poll interval for live lists when MongoDB change streams are unavailable"},
	{Name: "connect_timeout", Default: "10s", Desc: "Deadline for connecting to the document store"},

	{Name: "timeout_short", Default: "", Desc: "Deadline for single-document store calls (blank keeps 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Deadline for list queries (blank keeps 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Deadline for the report save workflow (blank keeps 20s)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "reporthub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Session cookie lifetime"},
	{Name: "csrf_key", Default: "dev-only-csrf-key-change-me-0123", Desc: "CSRF token key, exactly 32 bytes"},

	{Name: "draft_ttl", Default: "12h", Desc: "How long an unsaved editor draft is kept"},
	{Name: "timezone", Default: timezones.Default, Desc: "Time zone deciding the default report date"},

	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_report", Default: "log", Desc: "Report event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics on /metrics"},
	{Name: "metrics_runtime", Default: true, Desc: "Include Go runtime and process collectors"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, with precedence
// flags > env > files > defaults, the WAFFLE_* core keys and the
// REPORTHUB_* app keys above.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "REPORTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:             appValues.String("store_backend"),
		MongoURI:                 appValues.String("mongo_uri"),
		MongoDatabase:            appValues.String("mongo_database"),
		FirestoreProjectID:       appValues.String("firestore_project_id"),
		FirestoreCredentialsFile: appValues.String("firestore_credentials_file"),
		ListenPollInterval:       appValues.Duration("listen_poll_interval", 2*time.Second),
		ConnectTimeout:           appValues.Duration("connect_timeout", 10*time.Second),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 12*time.Hour),
		CSRFKey:       appValues.String("csrf_key"),

		DraftTTL: appValues.Duration("draft_ttl", drafts.DefaultTTL),
		TimeZone: appValues.String("timezone"),

		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditLogReport: appValues.String("audit_log_report"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
		MetricsRuntime: appValues.Bool("metrics_runtime"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later in a less
// obvious way: an unknown backend, a malformed MongoDB URI, a missing
// Firestore project, a bad CSRF key, an unknown time zone or audit mode.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case docstore.BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required for the mongo backend")
		}
	case docstore.BackendFirestore:
		if appCfg.FirestoreProjectID == "" {
			return fmt.Errorf("firestore_project_id is required for the firestore backend")
		}
	case docstore.BackendMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("memory store backend in production: data is lost on restart")
		}
	default:
		return fmt.Errorf("unknown store_backend %q (want mongo, firestore or memory)", appCfg.StoreBackend)
	}

	if len(appCfg.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be exactly 32 bytes, got %d", len(appCfg.CSRFKey))
	}
	if !timezones.Valid(appCfg.TimeZone) {
		return fmt.Errorf("unknown timezone %q", appCfg.TimeZone)
	}
	for key, mode := range map[string]string{
		"audit_log_auth":   appCfg.AuditLogAuth,
		"audit_log_admin":  appCfg.AuditLogAdmin,
		"audit_log_report": appCfg.AuditLogReport,
	} {
		switch mode {
		case "", "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s: unknown mode %q (want all, db, log or off)", key, mode)
		}
	}
	return nil
}
