package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/freelanceros/freelancer-os/docs"
	"github.com/freelanceros/freelancer-os/internal/api/handler"
	"github.com/freelanceros/freelancer-os/internal/api/middleware"
	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/core/service"
)

// Deps are the services and collaborators the HTTP layer is built from.
type Deps struct {
	Sessions  ports.SessionService
	Workspace *service.Workspace
	Insights  ports.InsightService
	Limiter   *middleware.RateLimiter
	Pingers   []handler.Pinger
	Log       zerolog.Logger

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer    prometheus.Registerer
	SecureCookies bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.Validator = handler.NewValidator()

	registerer := d.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.BodyLimit("6M"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "freelancer",
		Registerer: registerer,
	}))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Sessions, d.SecureCookies)
	e.POST("/auth/signup", authHandler.SignUp)
	e.POST("/auth/signin", authHandler.SignIn)
	e.GET("/auth/google", authHandler.GoogleLogin)
	e.GET("/auth/google/callback", authHandler.GoogleCallback)
	e.POST("/auth/signout", authHandler.SignOut)

	// --- Authenticated routes ---
	protected := []echo.MiddlewareFunc{middleware.Auth(d.Sessions)}
	if d.Limiter != nil {
		protected = append(protected, d.Limiter.Middleware())
	}

	accountHandler := handler.NewAccountHandler(d.Sessions)
	account := e.Group("/account", protected...)
	account.GET("", accountHandler.Get)
	account.PATCH("/profile", accountHandler.UpdateProfile)
	account.PUT("/password", accountHandler.UpdatePassword)
	account.PUT("/email", accountHandler.UpdateEmail)
	account.POST("/photo", accountHandler.UploadPhoto)
	account.DELETE("", accountHandler.Delete)

	v1 := e.Group("/v1", protected...)
	ws := d.Workspace
	handler.NewCollectionHandler[domain.Client](ws.Clients).Register(v1)
	handler.NewCollectionHandler[domain.Project](ws.Projects).Register(v1)
	handler.NewCollectionHandler[domain.Task](ws.Tasks).Register(v1)
	handler.NewCollectionHandler[domain.Finance](ws.Finances).Register(v1)
	handler.NewCollectionHandler[domain.Goal](ws.Goals).Register(v1)
	handler.NewCollectionHandler[domain.Resource](ws.Resources).Register(v1)
	handler.NewCollectionHandler[domain.Invoice](ws.Invoices).Register(v1)

	insightHandler := handler.NewInsightHandler(d.Insights)
	insights := v1.Group("/insights")
	insights.GET("/dashboard", insightHandler.Dashboard)
	insights.GET("/finances", insightHandler.Finances)
	insights.GET("/invoices", insightHandler.Invoices)
	insights.GET("/tasks", insightHandler.Tasks)
	insights.GET("/projects", insightHandler.Projects)
	insights.GET("/goals", insightHandler.Goals)
	insights.GET("/clients", insightHandler.Clients)
	insights.GET("/resources", insightHandler.Resources)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Pingers...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
