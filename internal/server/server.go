// Package server exposes the graph over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"socialgraph/internal/cache"
	"socialgraph/internal/config"
	"socialgraph/internal/database"
	"socialgraph/internal/featureflags"
	"socialgraph/internal/middleware"
	"socialgraph/internal/models"
	"socialgraph/internal/notifications"
	"socialgraph/internal/observability"
	"socialgraph/internal/service"
	"socialgraph/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var (
	promOnce sync.Once
	promMW   *fiberprometheus.FiberPrometheus
)

// httpMetrics returns the process-wide HTTP metrics middleware. It registers
// on the default registry, so it is created once.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMW = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer, "socialgraph-api", "http", "", nil)
	})
	return promMW
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	backend        store.Backend
	closeStore     func(ctx context.Context) error
	redis          *redis.Client
	cache          *cache.Cache
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	graph          *service.Graph
	featureFlags   *featureflags.Manager
	validate       *validator.Validate
	promMiddleware *fiberprometheus.FiberPrometheus
	app            *fiber.App
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
}

// NewServer connects to the configured store and Redis and builds a Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	handle, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	s := NewServerWithDeps(cfg, handle.Backend, cache.InitRedis(cfg.RedisURL))
	s.closeStore = handle.Close
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case caching and the event feed are off.
func NewServerWithDeps(cfg *config.Config, backend store.Backend, redisClient *redis.Client) *Server {
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		backend:        backend,
		redis:          redisClient,
		featureFlags:   flags,
		validate:       newValidator(),
		promMiddleware: httpMetrics(),
	}

	if redisClient != nil {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = cache.DefaultTTL
		}
		s.cache = cache.New(redisClient, ttl)
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}

	s.graph = service.NewGraph(backend, service.Options{
		Transactions: cfg.CascadeTransactions || flags.Enabled(featureflags.CascadeTransactions, ""),
		Parallel:     cfg.GatherParallelism,
	}, s.cache, s.notifier)

	if s.graph.Transactional() {
		observability.Logger.Info("cascades run in store transactions")
	}
	return s
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Social Graph API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			observability.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	limit := s.config.RateLimitMax
	if limit <= 0 {
		limit = 300
	}
	app.Use(limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	api.Post("/graph", middleware.RateLimit(middleware.RateLimitConfig{
		Redis:    s.redis,
		Limit:    120,
		Window:   time.Minute,
		Resource: "graph",
		Disabled: !s.config.IsProduction(),
	}), s.ExecuteOperation)

	users := api.Group("/users")
	users.Get("/", s.ListUsers)
	users.Post("/", s.CreateUser)
	// Specific /:id/:resource routes before the generic /:id routes.
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/comments", s.GetUserComments)
	users.Get("/:id/liked-posts", s.GetUserLikedPosts)
	users.Get("/:id", s.GetUser)
	users.Patch("/:id", s.UpdateUser)
	users.Delete("/:id", s.DeleteUser)

	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/:id/author", s.GetPostAuthor)
	posts.Get("/:id/comments", s.GetPostComments)
	posts.Get("/:id/likes", s.GetPostLikes)
	posts.Post("/:id/likes/:userId", s.LikePost)
	posts.Delete("/:id/likes/:userId", s.UnlikePost)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/", s.ListComments)
	comments.Post("/", s.CreateComment)
	comments.Get("/:id/author", s.GetCommentAuthor)
	comments.Get("/:id/post", s.GetCommentPost)
	comments.Get("/:id", s.GetComment)
	comments.Patch("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	admin := api.Group("/admin")
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/replay/:kind/:id", middleware.RateLimit(middleware.RateLimitConfig{
		Redis:    s.redis,
		Limit:    10,
		Window:   time.Minute,
		Resource: "replay",
		Disabled: !s.config.IsProduction(),
	}), s.ReplayDelete)

	api.Get("/ws/events", s.requireEventFeed, s.EventsHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the store and Redis answer. Redis is
// optional: without a client the check reports it as disabled.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.backend.Ping(ctx); err != nil {
		observability.Logger.WarnContext(ctx, "store ping failed", slog.String("error", err.Error()))
		storeStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	// The feed is optional, so a feed still subscribing degrades the
	// service without taking it out of rotation.
	feedStatus := "disabled"
	if s.hub != nil {
		feedStatus = "connecting"
		if s.hub.Wired() {
			feedStatus = "healthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case storeStatus != "healthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case feedStatus == "connecting":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store":      storeStatus,
			"redis":      redisStatus,
			"event_feed": feedStatus,
		},
		"transactional": s.graph.Transactional(),
		"time":          time.Now(),
	})
}

// Start wires the event feed and serves HTTP until the app is shut down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.RunWiring(s.shutdownCtx, s.notifier, nil); err != nil {
				observability.Logger.Error("event feed wiring stopped", slog.String("error", err.Error()))
			}
		}()
	}

	observability.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		s.hub.Shutdown()
	}

	if s.closeStore != nil {
		if err := s.closeStore(ctx); err != nil {
			observability.Logger.Error("error closing store", slog.String("error", err.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return nil
}
