package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"

	"github.com/kavach/engine/internal/api/handlers"
	"github.com/kavach/engine/internal/api/middleware"
	"github.com/kavach/engine/internal/api/routes"
	"github.com/kavach/engine/internal/auth"
	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/pkg/logger"
)

// Server encapsula el servidor Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *logger.Logger
}

// NewServer crea una nueva instancia del servidor
func NewServer(cfg *config.Config, log *logger.Logger, h *handlers.Handlers, verifier *auth.Verifier) *Server {
	files := cfg.Storage.MaxFiles
	if files < 1 {
		files = 1
	}

	app := fiber.New(fiber.Config{
		AppName:               "Kavach Engine",
		ServerHeader:          "Kavach/" + handlers.Version,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Storage.MaxUploadMB * files << 20,
		ReadTimeout:           2 * time.Minute,
		// la respuesta sale tras ejecutar el motor externo
		WriteTimeout: cfg.Engines.Timeout + time.Minute,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler(log, !cfg.IsProduction()),
	})

	setupMiddleware(app, cfg, log)

	var guards []fiber.Handler
	if cfg.Security.AuthEnabled {
		guards = append(guards, middleware.NewAuthMiddleware(verifier, log).Authenticate())
	} else {
		log.Warnw("⚠️ Authentication disabled - artifacts are not bound to an owner")
		guards = append(guards, middleware.Anonymous())
	}
	if cfg.Security.EnableRateLimiting {
		guards = append(guards, rateLimiter(cfg, log))
	}
	routes.Setup(app, h, guards...)

	return &Server{app: app, config: cfg, logger: log}
}

// setupMiddleware configura middleware global
func setupMiddleware(app *fiber.App, cfg *config.Config, log *logger.Logger) {
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.Security.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-ENGINE-SECRET,X-API-Key,X-Request-ID",
		ExposeHeaders: "Content-Disposition,Content-Length,X-Artifact-Name,X-Request-ID",
		MaxAge:        12 * 60 * 60,
	}))

	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger(log))

	if !cfg.IsProduction() {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}
}

// rateLimiter límite por IP en las rutas de operación
func rateLimiter(cfg *config.Config, log *logger.Logger) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.Security.RateLimitMax,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Warnw("🚦 Rate limit exceeded", "ip", c.IP(), "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":   false,
				"error":     "Rate limit exceeded. Try again later.",
				"code":      "RATE_LIMIT_EXCEEDED",
				"timestamp": time.Now().UTC(),
			})
		},
	})
}

// App expone la aplicación Fiber (tests)
func (s *Server) App() *fiber.App { return s.app }

// Start inicia el servidor en el puerto configurado
func (s *Server) Start() error {
	s.logger.Infow("🚀 Starting Kavach Engine",
		"port", s.config.Port,
		"environment", s.config.Environment,
		"auth_enabled", s.config.Security.AuthEnabled,
		"redis_enabled", s.config.Redis.Enabled,
		"office_provider", s.config.Office.Provider,
	)
	return s.app.Listen(fmt.Sprintf(":%d", s.config.Port))
}

// Shutdown detiene el servidor esperando a las requests en curso hasta que ctx expire
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("🛑 Stopping server...")
	return s.app.ShutdownWithContext(ctx)
}
