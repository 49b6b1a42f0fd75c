package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXTenantID     = "X-Tenant-ID"
	HeaderXServiceKey   = "X-Service-Key"

	// Content Types
	ContentTypeJSON = "application/json"

	// Context keys (gin context)
	ContextKeyUserID      = "user_id"
	ContextKeyAuthSubject = "auth_subject"
	ContextKeyUserRole    = "user_role"
	ContextKeyRequestID   = "request_id"
	ContextKeyServiceCall = "service_call"
	ContextKeyTenantID    = "tenant_id"

	// TenantSessionParam is the PostgreSQL session parameter carrying the
	// active tenant into RLS policy predicates via current_setting().
	TenantSessionParam = "app.current_tenant_id"

	// Database table names
	TableTenants            = "tenants"
	TableUsers              = "users"
	TableOnboardingProgress = "onboarding_progress"
	TableCustomers          = "customers"
	TableInvoices           = "invoices"

	// User roles
	RoleOwner  = "owner"
	RoleMember = "member"
	RoleAdmin  = "admin"
)
