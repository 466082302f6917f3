// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, env); everything below is
// specific to the report hub.
type AppConfig struct {
	// Document store
	StoreBackend             string        // "mongo", "firestore" or "memory"
	MongoURI                 string        // MongoDB connection string
	MongoDatabase            string        // Database name within MongoDB
	FirestoreProjectID       string        // Google Cloud project holding Firestore
	FirestoreCredentialsFile string        // Service account JSON (blank uses ADC)
	ListenPollInterval       time.Duration // Mongo fallback poll when change streams are unavailable
	ConnectTimeout           time.Duration // Deadline for the initial backend connection

	// Store call deadlines (zero keeps the built-in defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Session management
	SessionKey    string        // Secret key for signing session cookies
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRF protection (exactly 32 bytes)
	CSRFKey string

	// Editor drafts kept server-side per session
	DraftTTL time.Duration

	// Business time zone deciding "today" for new reports
	TimeZone string

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditLogReport string

	// Prometheus
	MetricsEnabled bool // serve /metrics
	MetricsRuntime bool // include Go runtime and process collectors
}
