package api

import (
	"context"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/batuta/dashboard/docs"
	"github.com/batuta/dashboard/internal/api/handler"
	"github.com/batuta/dashboard/internal/api/metrics"
	"github.com/batuta/dashboard/internal/api/middleware"
	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/core/service"
)

// Resources groups the CRUD modules behind the dashboard tables.
type Resources struct {
	Equipment  ports.ResourceAPI[domain.Equipment]
	Products   ports.ResourceAPI[domain.Product]
	Orders     ports.ResourceAPI[domain.Order]
	Deliveries ports.ResourceAPI[domain.Delivery]
	Users      ports.ResourceAPI[domain.Account]
}

// Deps is everything the router wires into handlers.
type Deps struct {
	Log zerolog.Logger

	Auth      ports.AuthAPI
	Messages  ports.MessageAPI
	Resources Resources

	Sessions ports.SessionStore
	Flash    ports.FlashStore
	Submit   ports.SubmissionGuard
	Reads    ports.ReadMarker

	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	GuardTimeout time.Duration
	PollInterval time.Duration

	// Pingers are reported by the readiness probe.
	Pingers map[string]handler.Pinger
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "batuta",
		Registerer: reg,
	}))

	// --- Dependencies ---
	newStore := func(key string) *service.AuthStore {
		return service.NewAuthStore(d.Auth, d.Sessions, key, d.Log,
			service.WithClearHook(func(reason string) {
				metrics.SessionsClearedTotal.WithLabelValues(reason).Inc()
			}))
	}
	session := middleware.Session(middleware.SessionConfig{
		CookieName: d.CookieName,
		Secure:     d.CookieSecure,
		MaxAge:     int(d.SessionTTL.Seconds()),
		NewStore:   newStore,
	}, d.Log)
	guard := service.NewGuard(d.GuardTimeout, d.Log)
	submitOnce := middleware.SubmitOnce(d.Submit, d.Log)
	anyRole := middleware.Guard(guard)
	section := func(s domain.Section) echo.MiddlewareFunc {
		return middleware.Guard(guard, domain.AllowedRoles(s)...)
	}

	authHandler := handler.NewAuthHandler(d.Flash, d.Log)
	dashboardHandler := handler.NewDashboardHandler(d.Messages, d.Flash, d.Log)
	messageHandler := handler.NewMessageHandler(d.Messages, d.Reads, d.Flash, d.PollInterval, d.Log)
	healthHandler := handler.NewHealthHandler(d.Pingers)

	// --- Auth routes ---
	auth := e.Group("/auth", session)
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register, submitOnce)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/forgot-password", authHandler.ForgotPassword, submitOnce)
	auth.POST("/reset-password", authHandler.ResetPassword, submitOnce)

	e.GET("/unauthorized", dashboardHandler.Unauthorized)

	// --- Dashboard ---
	dash := e.Group("/dashboard", session)
	dash.GET("", dashboardHandler.Home, anyRole)

	msgs := dash.Group("/messages", section(domain.SectionMessages))
	msgs.GET("", messageHandler.List)
	msgs.POST("", messageHandler.Compose, submitOnce)
	msgs.GET("/unread", messageHandler.Unread)
	msgs.GET("/unread/stream", messageHandler.Stream)
	msgs.GET("/conversation/:userId", messageHandler.Conversation)
	msgs.GET("/:id", messageHandler.Get)
	msgs.POST("/:id/reply", messageHandler.Reply, submitOnce)
	msgs.DELETE("/:id", messageHandler.Delete)

	mountResource(dash, "/equipment", section(domain.SectionEquipment), submitOnce,
		handler.NewResourceHandler(d.Resources.Equipment, "equipment", d.Flash, d.Log))
	mountResource(dash, "/products", section(domain.SectionProducts), submitOnce,
		handler.NewResourceHandler(d.Resources.Products, "product", d.Flash, d.Log))
	mountResource(dash, "/orders", section(domain.SectionOrders), submitOnce,
		handler.NewResourceHandler(d.Resources.Orders, "order", d.Flash, d.Log))
	mountResource(dash, "/deliveries", section(domain.SectionDeliveries), submitOnce,
		handler.NewResourceHandler(d.Resources.Deliveries, "delivery", d.Flash, d.Log))
	mountResource(dash, "/users", section(domain.SectionUsers), submitOnce,
		handler.NewResourceHandler(d.Resources.Users, "user", d.Flash, d.Log))

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func mountResource[T any](g *echo.Group, path string, guard, submitOnce echo.MiddlewareFunc, h *handler.ResourceHandler[T]) {
	r := g.Group(path, guard)
	r.GET("", h.List)
	r.POST("", h.Create, submitOnce)
	r.GET("/:id", h.Get)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

// AuthFailureHook is the API client's reaction to a 401/403: the session
// behind the request is dropped so the next page load lands on login.
// Calls made with a pinned token (refresh, background receipts) leave the
// session alone.
func AuthFailureHook(log zerolog.Logger) func(ctx context.Context, status int) {
	return func(ctx context.Context, status int) {
		clearer, ok := authctx.SourceFrom(ctx).(interface {
			Clear(ctx context.Context, reason string)
		})
		if !ok {
			return
		}
		log.Info().Int("status", status).Msg("backend rejected session token")
		clearer.Clear(ctx, service.ClearAuthExpired)
	}
}
