// Package edge is the browser-facing gateway: it normalizes legacy JSON
// shapes into the Inference Gateway's canonical API, terminates CORS and
// size caps, and translates verdict-vs-error semantics for the SDK.
package edge

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/Aman-Sigroha/kyc/internal/api/middleware"
	"github.com/Aman-Sigroha/kyc/internal/config"
)

// Router owns the Edge Gateway's fiber app.
type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	cfg         *config.EdgeConfig
	client      *Client
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, cfg *config.EdgeConfig) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "KYC Edge Gateway",
		// Base64 inflates images by a third; leave headroom over the cap.
		BodyLimit: int(cfg.MaxUploadBytes())*4 + 1024*1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		cfg:    cfg,
		client: NewClient(cfg.InferenceURL, cfg.RequestTimeout()),
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.CORSAllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	r.rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	r.app.Use(r.rateLimiter.Handler())

	h := NewHandler(r.client, r.cfg.MaxUploadBytes(), r.logger)

	r.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	r.app.Get("/api/v1/health", h.Health)

	// Legacy SDK entry point.
	r.app.Post("/v2/enduser/verify", h.EnduserVerify)

	// Canonical API passthrough so the SDK can speak one origin.
	r.app.Post("/api/v1/kyc/verify", h.Proxy)
	r.app.Post("/api/v1/kyc/ocr", h.Proxy)
	r.app.Get("/api/v1/liveness/challenge", h.Proxy)
	r.app.Post("/api/v1/liveness/verify", h.Proxy)
	r.app.Post("/api/v1/liveness/detect", h.Proxy)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	return r.app.Shutdown()
}
