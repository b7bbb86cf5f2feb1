// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"lexcourt/config"
	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/router/handler"
	sharedmiddleware "lexcourt/internal/delivery/middleware"
	"lexcourt/internal/infra/metrics"
)

type RouterParams struct {
	fx.In

	AuthHandler      *handler.AuthHandler
	SessionHandler   *handler.SessionHandler
	ProfileHandler   *handler.ProfileHandler
	DashboardHandler *handler.DashboardHandler
	CaseHandler      *handler.CaseHandler
	HearingHandler   *handler.HearingHandler
	ClientMiddleware *sharedmiddleware.ClientMiddleware
	Sessions         *middleware.SessionMiddleware
	Gatherer         *prometheus.Registry `optional:"true"`
	Config           *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler      *handler.AuthHandler
	sessionHandler   *handler.SessionHandler
	profileHandler   *handler.ProfileHandler
	dashboardHandler *handler.DashboardHandler
	caseHandler      *handler.CaseHandler
	hearingHandler   *handler.HearingHandler
	clientMiddleware *sharedmiddleware.ClientMiddleware
	sessions         *middleware.SessionMiddleware
	gatherer         *prometheus.Registry
	config           *config.Config
}

// NewRouter is the constructor for the Router.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:      params.AuthHandler,
		sessionHandler:   params.SessionHandler,
		profileHandler:   params.ProfileHandler,
		dashboardHandler: params.DashboardHandler,
		caseHandler:      params.CaseHandler,
		hearingHandler:   params.HearingHandler,
		clientMiddleware: params.ClientMiddleware,
		sessions:         params.Sessions,
		gatherer:         params.Gatherer,
		config:           params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	if r.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(r.gatherer)))
	}

	// Everything below belongs to a client context and its session manager.
	client := e.Group("", r.clientMiddleware.Process, r.sessions.Attach)

	authGroup := client.Group("/auth")
	{
		authGroup.POST("/sign-up", r.authHandler.SignUp)
		authGroup.POST("/sign-in", r.authHandler.SignIn)
		authGroup.POST("/sign-out", r.authHandler.SignOut)
	}

	sessionGroup := client.Group("/session")
	{
		sessionGroup.GET("", r.sessionHandler.Snapshot)
		sessionGroup.GET("/events", r.sessionHandler.Events)
		sessionGroup.GET("/guard", r.sessionHandler.Evaluate)
	}

	profileGroup := client.Group("/profile")
	{
		profileGroup.GET("", r.profileHandler.Get)
		profileGroup.PATCH("", r.profileHandler.Update)
	}

	// Role home pages and hearing rooms are rendered only on a guard allow.
	client.GET(r.config.Routes.LawyerHome, r.dashboardHandler.Lawyer, r.sessions.Protect)
	client.GET(r.config.Routes.JudgeHome, r.dashboardHandler.Judge, r.sessions.Protect)

	hearingsGroup := client.Group("/hearings", r.sessions.Protect)
	{
		hearingsGroup.GET("/:id/join", r.hearingHandler.Join)
		hearingsGroup.GET("/:id/qr", r.hearingHandler.QRCode)
		hearingsGroup.POST("/scan", r.hearingHandler.Scan)
	}

	apiV1 := client.Group("/api/v1")

	casesGroup := apiV1.Group("/cases")
	{
		casesGroup.GET("/search", r.caseHandler.Search)
		casesGroup.GET("/recent", r.caseHandler.Recent)
		casesGroup.POST("", r.caseHandler.Create)
		casesGroup.GET("/:id", r.caseHandler.Detail)
		casesGroup.POST("/:id/participants", r.caseHandler.AddParticipant)
		casesGroup.PUT("/:id/status", r.caseHandler.UpdateStatus)
		casesGroup.PUT("/:id/judge", r.caseHandler.AssignJudge)
		casesGroup.POST("/:id/hearings", r.caseHandler.ScheduleHearing)
		casesGroup.POST("/:id/communications", r.caseHandler.PostCommunication)
	}
}
