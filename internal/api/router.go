package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/Aman-Sigroha/kyc/internal/api/docs"
	"github.com/Aman-Sigroha/kyc/internal/api/handler"
	"github.com/Aman-Sigroha/kyc/internal/api/middleware"
	"github.com/Aman-Sigroha/kyc/internal/challenge"
	"github.com/Aman-Sigroha/kyc/internal/config"
	"github.com/Aman-Sigroha/kyc/internal/service"
	"github.com/Aman-Sigroha/kyc/internal/stage"
)

// Dependencies carries everything the router needs to wire handlers.
type Dependencies struct {
	Registry       *stage.Registry
	ChallengeStore *challenge.Store
	KYCService     *service.KYCService
	Liveness       *service.LivenessService
}

// Router owns the Inference Gateway's fiber app and route table.
type Router struct {
	app    *fiber.App
	logger *slog.Logger
	cfg    *config.Config
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, cfg *config.Config, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "KYC Inference Gateway",
		// Multipart framing and base64 expansion both inflate the body
		// beyond the per-image cap, so the raw limit sits well above it.
		BodyLimit: int(cfg.MaxUploadBytes())*4 + 1024*1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		cfg:    cfg,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(r.cfg.AllowedOrigins(), ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.Registry)
	r.app.Get("/health", healthHandler.Live)

	v1 := r.app.Group("/api/v1")
	v1.Get("/health", healthHandler.Health)

	kycHandler := handler.NewKYCHandler(r.deps.KYCService, r.cfg.MaxUploadBytes(), r.cfg.RequestTimeout(), r.logger)
	kyc := v1.Group("/kyc")
	kyc.Post("/verify", kycHandler.Verify)
	kyc.Post("/ocr", kycHandler.OCR)

	livenessHandler := handler.NewLivenessHandler(r.deps.Liveness, r.cfg.MaxUploadBytes(), r.cfg.RequestTimeout(), r.logger)
	liveness := v1.Group("/liveness")
	liveness.Get("/challenge", livenessHandler.Challenge)
	liveness.Post("/verify", livenessHandler.Verify)
	liveness.Post("/detect", livenessHandler.Detect)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.deps.ChallengeStore != nil {
		r.deps.ChallengeStore.Stop()
	}
	return r.app.Shutdown()
}
