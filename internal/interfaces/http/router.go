package http

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authapp "canopy/internal/application/auth"
	billingapp "canopy/internal/application/billing"
	"canopy/internal/application/consistency"
	onboardingapp "canopy/internal/application/onboarding"
	tenantapp "canopy/internal/application/tenant"
	infraauth "canopy/internal/infrastructure/auth"
	"canopy/internal/infrastructure/cache"
	"canopy/internal/infrastructure/config"
	"canopy/internal/infrastructure/database"
	"canopy/internal/infrastructure/email"
	"canopy/internal/infrastructure/permission"
	"canopy/internal/infrastructure/repository"
	"canopy/internal/interfaces/http/handlers"
	"canopy/internal/interfaces/http/middleware"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

const (
	tenantCacheTTL = 5 * time.Minute
	oidcStateTTL   = 10 * time.Minute
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// registerValidations adds the custom binding rules request DTOs use.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return currencyPattern.MatchString(fl.Field().String())
		})
	}
}

// Router wires the application together and owns the HTTP surface.
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
	pool   *database.SessionPool

	healthHandler     *handlers.HealthHandler
	authHandler       *handlers.AuthHandler
	tenantHandler     *handlers.TenantHandler
	onboardingHandler *handlers.OnboardingHandler
	billingHandler    *handlers.BillingHandler
	adminHandler      *handlers.AdminHandler

	authMiddleware   *middleware.AuthMiddleware
	tenantMiddleware *middleware.TenantMiddleware
	adminMiddleware  *middleware.AdminMiddleware
	serviceKeys      *infraauth.ServiceKeyVerifier
	logger           logger.Interface
}

// NewRouter constructs every repository, service, middleware and handler.
// appDB runs as the RLS-constrained application role; maintenanceDB runs
// as the BYPASSRLS role and is used only by migrations and admin
// operations.
func NewRouter(
	cfg *config.Config,
	appDB *gorm.DB,
	maintenanceDB *gorm.DB,
	redisClient *redis.Client,
	log logger.Interface,
) (*Router, error) {
	registerValidations()
	engine := gin.New()

	tenantRepo := repository.NewTenantRepository(appDB, log)
	userRepo := repository.NewUserRepository(appDB, log)
	onboardingRepo := repository.NewOnboardingRepository(appDB, log)
	customerRepo := repository.NewCustomerRepository(appDB, log)
	invoiceRepo := repository.NewInvoiceRepository(appDB, log)

	txManager := db.NewTransactionManager(appDB)
	tenantCache := cache.NewTenantCache(redisClient, tenantCacheTTL)
	stateStore := cache.NewRedisStateStore(redisClient, "oidc:state:", oidcStateTTL)

	jwtService := infraauth.NewJWTService(&cfg.Auth.JWT)
	oidcClient := infraauth.NewOIDCClient(&cfg.Auth.OIDC)
	serviceKeys := infraauth.NewServiceKeyVerifier(&cfg.Auth.Service)
	notifier := email.NewSMTPNotifier(&cfg.Email)

	manifest, err := database.LoadManifest(cfg.RLS.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load RLS manifest: %w", err)
	}
	policies := database.NewPolicyManager(maintenanceDB, manifest, log)

	pool, err := database.NewSessionPool(appDB, &cfg.SessionPool, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create session pool: %w", err)
	}

	enforcer, err := permission.NewEnforcer(maintenanceDB, cfg.Auth.RBACModelPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create RBAC enforcer: %w", err)
	}

	tenantService := tenantapp.NewService(tenantRepo, userRepo, onboardingRepo, txManager, tenantCache, log)
	consolidator := tenantapp.NewConsolidator(tenantRepo, userRepo, onboardingRepo, txManager, tenantCache, maintenanceDB, log)
	onboardingService := onboardingapp.NewService(onboardingRepo, userRepo, tenantService, notifier, log)
	billingService := billingapp.NewService(customerRepo, invoiceRepo, log)
	authService := authapp.NewService(oidcClient, stateStore, jwtService, userRepo, log)
	checker := consistency.NewChecker(userRepo, tenantRepo, onboardingService, policies, maintenanceDB, log)

	return &Router{
		engine: engine,
		cfg:    cfg,
		pool:   pool,

		healthHandler:     handlers.NewHealthHandler(appDB, redisClient),
		authHandler:       handlers.NewAuthHandler(authService, log),
		tenantHandler:     handlers.NewTenantHandler(tenantService, log),
		onboardingHandler: handlers.NewOnboardingHandler(onboardingService, log),
		billingHandler:    handlers.NewBillingHandler(billingService, log),
		adminHandler:      handlers.NewAdminHandler(policies, consolidator, onboardingService, checker, pool, log),

		authMiddleware:   middleware.NewAuthMiddleware(jwtService, log),
		tenantMiddleware: middleware.NewTenantMiddleware(tenantService, pool, tenantCache, log),
		adminMiddleware:  middleware.NewAdminMiddleware(enforcer, log),
		serviceKeys:      serviceKeys,
		logger:           log,
	}, nil
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))
	r.engine.Use(middleware.SecurityHeaders())
	r.engine.Use(middleware.Metrics())

	r.engine.GET("/health", r.healthHandler.Check)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.engine.Group("/auth")
	{
		auth.GET("/login", r.authHandler.Login)
		auth.GET("/callback", r.authHandler.Callback)
		auth.POST("/refresh", r.authHandler.Refresh)
	}

	api := r.engine.Group("/api/v1")
	api.Use(r.authMiddleware.RequireAuthOrServiceKey(r.serviceKeys))
	{
		// Onboarding runs before the user has a tenant, so the tenant
		// binding is optional here.
		onboarding := api.Group("/onboarding")
		onboarding.Use(r.tenantMiddleware.OptionalTenant())
		{
			onboarding.POST("/start", r.onboardingHandler.Start)
			onboarding.GET("", r.onboardingHandler.Get)
			onboarding.POST("/advance", r.onboardingHandler.Advance)
		}

		// Tenant creation happens before the caller has a tenant.
		api.POST("/tenants", r.tenantMiddleware.OptionalTenant(), r.tenantHandler.Create)

		tenant := api.Group("/tenant")
		tenant.Use(r.tenantMiddleware.RequireTenant())
		{
			tenant.GET("", r.tenantHandler.GetCurrent)
			tenant.PUT("", r.tenantHandler.Rename)
			tenant.DELETE("", r.tenantHandler.Deactivate)
		}

		scoped := api.Group("")
		scoped.Use(r.tenantMiddleware.RequireTenant())
		{
			scoped.POST("/customers", r.billingHandler.CreateCustomer)
			scoped.GET("/customers", r.billingHandler.ListCustomers)
			scoped.GET("/customers/:id", r.billingHandler.GetCustomer)
			scoped.PUT("/customers/:id", r.billingHandler.UpdateCustomer)
			scoped.DELETE("/customers/:id", r.billingHandler.DeleteCustomer)

			scoped.POST("/invoices", r.billingHandler.CreateInvoice)
			scoped.GET("/invoices", r.billingHandler.ListInvoices)
			scoped.GET("/invoices/:id", r.billingHandler.GetInvoice)
			scoped.POST("/invoices/:id/send", r.billingHandler.SendInvoice)
			scoped.POST("/invoices/:id/pay", r.billingHandler.MarkInvoicePaid)
			scoped.POST("/invoices/:id/void", r.billingHandler.VoidInvoice)
		}
	}

	// Admin routes run on the maintenance connection and never bind a
	// tenant session.
	admin := r.engine.Group("/admin")
	admin.Use(r.authMiddleware.RequireAuthOrServiceKey(r.serviceKeys))
	{
		admin.GET("/rls/verify", r.adminMiddleware.RequirePermission("admin:rls", "read"), r.adminHandler.VerifyRLS)
		admin.POST("/rls/enable", r.adminMiddleware.RequirePermission("admin:rls", "write"), r.adminHandler.EnableRLS)

		admin.POST("/tenants/consolidate", r.adminMiddleware.RequirePermission("admin:consolidation", "write"), r.adminHandler.Consolidate)
		admin.POST("/onboarding/repair", r.adminMiddleware.RequirePermission("admin:consistency", "write"), r.adminHandler.RepairOnboarding)
		admin.POST("/consistency/check", r.adminMiddleware.RequirePermission("admin:consistency", "write"), r.adminHandler.CheckConsistency)

		admin.GET("/connections", r.adminMiddleware.RequirePermission("admin:connections", "read"), r.adminHandler.ConnectionStats)
		admin.POST("/connections/release", r.adminMiddleware.RequirePermission("admin:connections", "write"), r.adminHandler.ReleaseConnections)
	}
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}

// Close releases pooled tenant sessions. Call on shutdown.
func (r *Router) Close() {
	r.pool.Close()
}
