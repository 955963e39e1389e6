// Package server contains HTTP and WebSocket handlers for the marketplace API.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"guestpost/internal/cache"
	"guestpost/internal/config"
	"guestpost/internal/database"
	"guestpost/internal/featureflags"
	"guestpost/internal/middleware"
	"guestpost/internal/models"
	"guestpost/internal/notifications"
	"guestpost/internal/observability"
	"guestpost/internal/ownership"
	"guestpost/internal/repository"
	"guestpost/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	websiteRepo    repository.WebsiteRepository
	ownershipRepo  repository.OwnershipRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	hubs           []wireableHub
	featureFlags   *featureflags.Manager
	websites       *service.WebsiteService
	verification   *service.VerificationService
	moderation     *service.ModerationService
}

// NewServer connects to the database and Redis and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("guestpost-api"),
		userRepo:       repository.NewUserRepository(db),
		websiteRepo:    repository.NewWebsiteRepository(db),
		ownershipRepo:  repository.NewOwnershipRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	var publisher notifications.Publisher
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
		server.hubs = []wireableHub{server.hub}
		publisher = server.notifier
	}

	var google service.GoogleVerifier
	if cfg.GoogleEnabled() {
		google = ownership.NewGoogleChecker(context.Background(), ownership.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}

	audit := observability.NewAuditLogger(middleware.Logger)
	server.websites = service.NewWebsiteService(db, server.websiteRepo, server.userRepo, publisher, audit, cfg.CatalogCacheTTL())
	server.verification = service.NewVerificationService(service.VerificationDeps{
		DB:          db,
		Websites:    server.websiteRepo,
		Users:       server.userRepo,
		Records:     server.ownershipRepo,
		HTML:        ownership.NewHTMLFileChecker(cfg.HTMLVerifyTimeout()),
		Google:      google,
		State:       ownership.NewStateSigner(cfg.JWTSecret, cfg.OAuthStateTTL()),
		Flags:       server.featureFlags,
		Publisher:   publisher,
		Audit:       audit,
		FrontendURL: cfg.FrontendURL,
	})
	server.moderation = service.NewModerationService(db, server.websiteRepo, publisher, audit)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"ok":    false,
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Guestpost API Metrics Dashboard",
	}))

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	catalogRoutes := api.Group("/catalog")
	catalogRoutes.Get("/options", s.GetCatalogOptions)
	catalogRoutes.Get("/websites", s.GetCatalogWebsites)

	// The Google redirect lands here without a bearer token; the signed state identifies the user.
	api.Get("/oauth/google/callback", s.GoogleOAuthCallback)

	// Registered ahead of the protected group so a ticket is consumed once.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	protected := api.Group("", s.AuthRequired())
	protected.Get("/feature-flags", s.GetFeatureFlags)

	websites := protected.Group("/websites", s.PublisherRequired())
	websites.Get("/", s.ListMyWebsites)
	websites.Post("/", middleware.RateLimit(s.redis, 20, time.Hour, "add_website"), s.AddWebsite)
	websites.Post("/:id/verification/initiate", s.InitiateVerification)
	websites.Post("/:id/verification/verify", middleware.RateLimitWithPolicy(
		s.redis, 10, 10*time.Minute, middleware.FailClosed, "verify"), s.VerifyWebsite)
	websites.Get("/:id", s.GetWebsite)
	websites.Put("/:id", s.UpdateWebsite)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	adminWebsites := admin.Group("/websites")
	adminWebsites.Get("/", s.ListAdminWebsites)
	adminWebsites.Post("/:id/review", s.ReviewWebsite)
	adminWebsites.Post("/:id/approve", s.ApproveWebsite)
	adminWebsites.Post("/:id/reject", s.RejectWebsite)
	adminWebsites.Post("/:id/pause", s.PauseWebsite)
	adminWebsites.Post("/:id/resume", s.ResumeWebsite)
	adminWebsites.Put("/:id/verification-methods", s.SetVerificationMethods)
	adminWebsites.Delete("/:id", s.DeleteWebsite)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis carries sessions revocation, OAuth state and events, so it is required.
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Method() == fiber.MethodGet

		// Browsers cannot set headers on websocket upgrades, so /api/ws also accepts a single-use ticket.
		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			raw, ok, err := cache.TakeOnce(c.Context(), cache.WSTicketKey(ticket))
			if err != nil || !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			userID, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			s.setIdentity(c, uint(userID), "", "")
			return c.Next()
		}

		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if claims.JTI != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.Context(), cache.BlacklistKey(claims.JTI)).Result()
			if err == nil && revoked > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		s.setIdentity(c, claims.UserID, claims.Role, claims.JTI)
		c.Locals("tokenExpiresAt", claims.ExpiresAt)
		return c.Next()
	}
}

func (s *Server) setIdentity(c *fiber.Ctx, userID uint, role models.Role, jti string) {
	c.Locals("userID", userID)
	if role != "" {
		c.Locals("role", role)
	}
	if jti != "" {
		c.Locals("jti", jti)
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return s.requireRole("Admin access required", models.RoleAdmin)
}

// PublisherRequired lets publishers manage their listings. Admins pass as well.
func (s *Server) PublisherRequired() fiber.Handler {
	return s.requireRole("Publisher account required", models.RolePublisher, models.RoleAdmin)
}

// requireRole checks the stored role, so promotions take effect without a new token.
func (s *Server) requireRole(message string, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.StatusFor(err) == fiber.StatusNotFound {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Account no longer exists"))
			}
			return models.RespondWithAppError(c, err)
		}
		for _, role := range roles {
			if user.Role == role {
				c.Locals("role", user.Role)
				return c.Next()
			}
		}
		return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(message))
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Guestpost API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil {
		for _, h := range s.hubs {
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					log.Printf("failed to start %s wiring: %v", h.Name(), err)
				}
			}()
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", h.Name(), err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
