package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, the profile endpoint
// under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT middleware: a refresh token in the body
	// terminates that session, a bearer header terminates all sessions.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated event catalogue.  The
// catalogue sits behind the Redis response cache: registered counts may
// drift by at most the cache TTL, which browsing tolerates.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewRedisCache(cacheCfg, rdb)
	e.GET("/v1/events", p.ListEvents, cached)
	e.GET("/v1/events/:id", p.GetEvent, cached)
}

// RegisterAPI registers every authenticated route: attendee ticketing,
// organizer event management, the staff gate workflow, and the admin
// surface.  All of them share the JWT middleware and the Redis token
// bucket; role middleware narrows each group further.
func RegisterAPI(
	e *echo.Echo,
	cfg config.Config,
	rl config.RateLimitConfig,
	rdb *redis.Client,
	reg *handler.RegistrationHandler,
	org *handler.OrganizerHandler,
	ci *handler.CheckInHandler,
	adm *handler.AdminHandler,
) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.NewTokenBucket(rl, rdb))

	// Attendee ticketing.  Every authenticated role can hold tickets.
	attendee := auth.Group("")
	attendee.Use(middleware.RequireRole(model.RoleAttendee, model.RoleOrganizer, model.RoleAdmin))
	attendee.POST("/events/:id/register", reg.Register)
	attendee.GET("/my-registrations", reg.ListMine)
	attendee.GET("/registrations/:id", reg.Get)
	attendee.GET("/registrations/:id/qr", reg.TicketQR)
	attendee.DELETE("/registrations/:id", reg.Cancel)

	// Organizer event management.  "mine" must be registered before the
	// organizer-scoped :id routes would otherwise swallow it.
	organizer := auth.Group("")
	organizer.Use(middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	organizer.POST("/events", org.CreateEvent)
	organizer.GET("/events/mine", org.ListMyEvents)
	organizer.PATCH("/events/:id", org.UpdateEvent)
	organizer.DELETE("/events/:id", org.CancelEvent)
	organizer.GET("/events/:id/registrations", org.EventRegistrations)
	organizer.GET("/events/:id/stats", org.EventStats)

	// Gate workflow for staff devices.
	organizer.POST("/checkins/scan", ci.Scan)
	organizer.POST("/checkins/manual", ci.Manual)
	organizer.GET("/events/:id/checkins", ci.History)
	organizer.GET("/events/:id/checkins/recent", ci.Recent)
	organizer.GET("/events/:id/checkins/stats", ci.Stats)

	// Administration.
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", adm.ListUsers)
	admin.PATCH("/users/:id/role", adm.UpdateRole)
	admin.GET("/overview", adm.Overview)
}
