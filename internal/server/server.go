package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/gofiber/storage/redis/v3"
	"github.com/gofiber/template/html/v3"

	"carprice/internal/catalog"
	"carprice/internal/config"
	"carprice/internal/handlers"
	"carprice/internal/metrics"
	"carprice/internal/predictor"
	"carprice/views"
)

// Server wraps the Fiber app and configuration.
type Server struct {
	App     *fiber.App
	Cfg     *config.Config
	Catalog *catalog.Index
	Metrics *metrics.Metrics
	Gateway *predictor.Gateway

	limiterStorage fiber.Storage
}

// Prepare loads the catalog and builds a fully routed server. It returns an
// error, and no server, if the dataset cannot be loaded: nothing may listen
// without a catalog.
func Prepare(ctx context.Context, cfg *config.Config) (*Server, error) {
	idx, err := catalog.LoadFile(ctx, cfg.DatasetPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	m.RegisterCatalog(idx)

	opts := []predictor.Option{predictor.WithMetrics(m)}
	if cfg.ValidateSelection {
		opts = append(opts, predictor.WithSelectionCheck(idx))
	}
	gateway, err := predictor.New(cfg.Predictor, opts...)
	if err != nil {
		return nil, err
	}

	s := New(cfg)
	s.Gateway = gateway
	s.RegisterRoutes(idx, gateway, m)
	return s, nil
}

// New creates a new server with middleware configured.
func New(cfg *config.Config) *Server {
	// Setup template engine
	engine := html.NewFileSystem(http.FS(views.FS), ".html")

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		Views:       engine,
		ViewsLayout: "layouts/main",
		// Form values outlive the request in the prediction cache and logs.
		Immutable: true,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			} else {
				slog.Error("unhandled request error", "path", c.Path(), "error", err)
			}

			return c.Status(code).Render("error", handlers.MergeBranding(fiber.Map{
				"Title":   "Error",
				"Message": message,
			}, cfg))
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Static files
	app.Get("/static/*", static.New("./static"))

	return &Server{
		App: app,
		Cfg: cfg,
	}
}

// predictLimiter caps prediction submissions per client IP, since each one
// spawns a process. Returns nil when disabled.
func (s *Server) predictLimiter() fiber.Handler {
	if s.Cfg.RateLimitMax <= 0 {
		return nil
	}
	if s.Cfg.RedisURL != "" && s.limiterStorage == nil {
		// Counters are shared between replicas behind a load balancer.
		s.limiterStorage = redis.New(redis.Config{URL: s.Cfg.RedisURL})
		slog.Info("rate limiter using redis storage")
	}

	return limiter.New(limiter.Config{
		Storage:    s.limiterStorage,
		Max:        s.Cfg.RateLimitMax,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.Status(fiber.StatusTooManyRequests).SendString("Rate limit exceeded. Please try again later.")
		},
	})
}

// Start starts the server with the configured address and TLS settings.
func (s *Server) Start() error {
	listenConfig := fiber.ListenConfig{
		DisableStartupMessage: !s.Cfg.IsDev(),
	}
	if s.Cfg.TLSEnabled() {
		listenConfig.CertFile = s.Cfg.TLSCertFile
		listenConfig.CertKeyFile = s.Cfg.TLSKeyFile
		slog.Info("starting server with TLS", "addr", s.Cfg.ServerAddr)
	} else {
		slog.Info("starting server", "addr", s.Cfg.ServerAddr)
	}
	return s.App.Listen(s.Cfg.ServerAddr, listenConfig)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	err := s.App.Shutdown()
	if s.limiterStorage != nil {
		if cerr := s.limiterStorage.Close(); cerr != nil {
			slog.Error("failed to close limiter storage", "error", cerr)
		}
	}
	return err
}
