package config

import "time"

const (
	KeyServerPort   = "server.port"
	KeyServerDomain = "server.domain"
	KeySecretKey    = "server.secret_key"
	KeyTLSEnabled   = "server.tls.enabled"
	KeyTLSCertFile  = "server.tls.cert_file"
	KeyTLSKeyFile   = "server.tls.key_file"

	KeyHealthcheckIgnoreBadTLS = "healthcheck.tls.ignore_bad_tls"

	KeyDBKind = "db.kind"
	KeyDBFile = "db.file"

	KeyMinPasswordLength   = "security.min_password_length"
	DisableSecurityHeaders = "security.disable_security_headers"

	KeyLeadsTimezone       = "leads.timezone"
	KeyCORSAllowedOrigins  = "leads.cors.allowed_origins"
	KeyFrameAncestors      = "leads.frame_ancestors"
	KeySubmitLimitMax      = "leads.submit_limit.max_per_window"
	KeySubmitLimitWindow   = "leads.submit_limit.window"
	KeyMetricsDisabled     = "metrics.disabled"
	DefaultCookieLifetime  = "session.cookie.timeout"
	DefaultSessionLifetime = "session.timeout"

	KeyBootstrapAdminUsername = "bootstrap.admin.username"
	KeyBootstrapAdminPassword = "bootstrap.admin.password"
	KeyBootstrapAdminEmail    = "bootstrap.admin.email"
	KeyBootstrapAdminFullName = "bootstrap.admin.full_name"

	DefaultPort          = 9000
	DefaultLeadsTimezone = "America/Sao_Paulo"
	DefaultSubmitMax     = 10
	DefaultSubmitWindow  = 10 * time.Minute

	DefaultBootstrapAdminUsername = "admin"
	DefaultBootstrapAdminEmail    = "admin@evolutecode.com"
	DefaultBootstrapAdminFullName = "Administrador"
)
