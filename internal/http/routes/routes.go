// Package routes assembles the HTTP API.
package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/auth"
	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/lesson"
	"github.com/mo-amir99/course-platform-go/internal/features/payment"
	"github.com/mo-amir99/course-platform-go/internal/features/subscription"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/pkg/cache"
	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/health"
	"github.com/mo-amir99/course-platform-go/pkg/metrics"
	pkgmiddleware "github.com/mo-amir99/course-platform-go/pkg/middleware"
	"github.com/mo-amir99/course-platform-go/pkg/request"
	"github.com/mo-amir99/course-platform-go/pkg/validation"
)

const maxBodyBytes = 1 << 20

// Dependencies are the collaborators built in main.
type Dependencies struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *slog.Logger
	Cache     cache.Client
	Notifier  course.Notifier
	Processor payment.Processor
	Mailer    auth.Mailer
	Health    *health.Handler
}

// NewRouter builds the engine with the middleware stack and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(pkgmiddleware.Recovery(deps.Logger))
	router.Use(pkgmiddleware.CORS(deps.Config.AllowedOrigins))
	router.Use(pkgmiddleware.RequestID())
	router.Use(pkgmiddleware.RequestLogger(deps.Logger))
	router.Use(pkgmiddleware.SecurityHeaders())
	router.Use(pkgmiddleware.RequestSizeLimit(maxBodyBytes))
	router.Use(metrics.Middleware())
	router.Use(request.Handler(deps.Logger))

	if deps.Cache != nil && deps.Config.RateLimit.Requests > 0 {
		limiter := pkgmiddleware.NewRateLimiter(deps.Cache, deps.Config.RateLimit.Requests, deps.Config.RateLimit.Window, deps.Logger)
		router.Use(limiter.Middleware())
	}

	Register(router, deps)
	return router
}

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, deps Dependencies) {
	if err := validation.RegisterBindings(); err != nil {
		deps.Logger.Error("register validation bindings", slog.String("error", err.Error()))
	}

	// probes stay outside /api
	if deps.Health != nil {
		engine.GET("/health", deps.Health.Health)
		engine.GET("/ready", deps.Health.Ready)
	}
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")

	authMiddleware := middleware.NewAuthMiddleware(middleware.NewGormLoader(deps.DB), deps.Config.Auth.JWTSecret, deps.Logger)
	required := authMiddleware.Required()
	optional := authMiddleware.Optional()

	auth.RegisterRoutes(api, auth.NewHandler(deps.DB, deps.Logger, deps.Config.Auth, deps.Mailer))
	user.RegisterRoutes(api, user.NewHandler(deps.DB, deps.Logger), required)

	course.RegisterRoutes(api, course.NewHandler(deps.DB, deps.Logger, deps.Notifier), optional, required)
	lesson.RegisterRoutes(api, lesson.NewHandler(deps.DB, deps.Logger, deps.Notifier), optional, required)
	subscription.RegisterRoutes(api, subscription.NewHandler(deps.DB, deps.Logger), required)

	payments := payment.NewService(payment.NewRepository(deps.DB), deps.Processor, deps.Config.Stripe.Timeout, deps.Logger)
	payment.RegisterRoutes(api, payment.NewHandler(payments, deps.Logger), required)
}
