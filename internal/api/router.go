package api

import (
	"net/http"
	"time"

	"github.com/Rrens/muni-admin/internal/api/handler"
	customMiddleware "github.com/Rrens/muni-admin/internal/api/middleware"
	"github.com/Rrens/muni-admin/internal/config"
	"github.com/Rrens/muni-admin/internal/identity"
	"github.com/Rrens/muni-admin/internal/metrics"
	"github.com/Rrens/muni-admin/internal/repository/postgres"
	"github.com/Rrens/muni-admin/internal/repository/redis"
	"github.com/Rrens/muni-admin/internal/security"
	"github.com/Rrens/muni-admin/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Dependencies are the wired services behind the HTTP API
type Dependencies struct {
	JWTManager  *security.JWTManager
	Access      *service.AccessService
	Tenants     *service.TenantService
	Memberships *service.MembershipService
	Modules     *service.ModuleService
	Invites     *service.InviteService

	// optional
	RateLimiter *redis.RateLimiter
	Metrics     *metrics.Metrics
	Readiness   map[string]handler.Pinger
}

// NewRouter wires repositories and services and returns the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client, m *metrics.Metrics) http.Handler {
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.SelectionSecret, cfg.Auth.Issuer, cfg.Auth.TenantSelectionTTL)

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	moduleRepo := postgres.NewModuleRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	inviteLock := redis.NewInviteLock(redisClient, cfg.Security.InviteLockTTL)

	identityClient := identity.NewClient(cfg.Identity)

	// Initialize services
	accessService := service.NewAccessService(tenantRepo, membershipRepo, moduleRepo, profileRepo, m)
	tenantService := service.NewTenantService(tenantRepo, membershipRepo, accessService, jwtManager)
	membershipService := service.NewMembershipService(membershipRepo, accessService, m)
	moduleService := service.NewModuleService(moduleRepo, membershipRepo, accessService)
	inviteService := service.NewInviteService(identityClient, profileRepo, inviteLock, accessService, membershipService, m)

	return Routes(cfg, Dependencies{
		JWTManager:  jwtManager,
		Access:      accessService,
		Tenants:     tenantService,
		Memberships: membershipService,
		Modules:     moduleService,
		Invites:     inviteService,
		RateLimiter: rateLimiter,
		Metrics:     m,
		Readiness: map[string]handler.Pinger{
			"database": db,
			"redis":    redisClient,
		},
	})
}

// Routes builds the router around already wired dependencies
func Routes(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.Metrics != nil && cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, deps.Metrics.Handler())
	}

	meHandler := handler.NewMeHandler(deps.Access, deps.Tenants)
	sessionHandler := handler.NewSessionHandler(deps.Tenants, cfg.Auth)
	tenantHandler := handler.NewTenantHandler(deps.Tenants, deps.Access)
	memberHandler := handler.NewMemberHandler(deps.Memberships)
	moduleHandler := handler.NewModuleHandler(deps.Modules)
	inviteHandler := handler.NewInviteHandler(deps.Invites)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWTManager, cfg.Auth.SessionCookie)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Security.IPRateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.Security.IPRateLimit, time.Minute))
		}

		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Readiness))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.RateLimiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit)
			}

			r.Get("/me", meHandler.Get)
			r.Get("/modules", handler.ListModules)

			r.Route("/session", func(r chi.Router) {
				r.Get("/context", sessionHandler.Context)
				r.Put("/tenant", sessionHandler.Select)
				r.Delete("/tenant", sessionHandler.Clear)
			})

			r.Post("/invites", inviteHandler.Invite)

			// Tenant routes
			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", tenantHandler.List)
				r.Post("/", tenantHandler.Create)

				r.Route("/{tenantID}", func(r chi.Router) {
					r.Use(customMiddleware.TenantContext)

					r.Get("/", tenantHandler.Get)
					r.Get("/access", tenantHandler.Access)

					r.Get("/modules", moduleHandler.GetEnablement)
					r.Put("/modules", moduleHandler.SetEnablement)
					r.Put("/modules/{moduleKey}", moduleHandler.SetModule)

					r.Get("/access-matrix", moduleHandler.GetAccessMatrix)
					r.Put("/access-matrix", moduleHandler.SetAccessMatrix)
					r.Put("/access-matrix/{userID}/{moduleKey}", moduleHandler.SetMemberModule)

					r.Post("/invites", inviteHandler.InviteToTenant)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", memberHandler.List)
						r.Post("/", memberHandler.Add)
						r.Patch("/{userID}", memberHandler.ChangeRole)
						r.Delete("/{userID}", memberHandler.Revoke)
					})
				})
			})
		})
	})

	return r
}
