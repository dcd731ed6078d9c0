package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ksred/studio-payroll/internal/auth"
	"github.com/ksred/studio-payroll/internal/config"
	"github.com/ksred/studio-payroll/internal/payroll"
	"github.com/ksred/studio-payroll/internal/reservation"
	"github.com/ksred/studio-payroll/internal/roster"
	"github.com/ksred/studio-payroll/pkg/middleware"
	"github.com/ksred/studio-payroll/pkg/response"
)

// Services holds the backend services so callers can start background work
type Services struct {
	Auth        *auth.Service
	Roster      *roster.Service
	Reservation *reservation.Service
	Payroll     *payroll.Service
}

// NewServices wires every backend service to db
func NewServices(cfg *config.Config, db *gorm.DB) *Services {
	return &Services{
		Auth:        auth.NewService(db, cfg.JWTSecret),
		Roster:      roster.NewService(db),
		Reservation: reservation.NewService(db),
		Payroll:     payroll.NewService(db, time.UTC),
	}
}

// NewProcessor builds the month-closing processor for these services
func (s *Services) NewProcessor(cfg *config.Config) *payroll.Processor {
	return payroll.NewProcessor(s.Payroll, s.Reservation, cfg.SettlementCloseInterval)
}

// NewRouter builds the gin engine with middleware and every API route
func NewRouter(cfg *config.Config, services *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	SetupRoutes(router, cfg.JWTSecret, cfg.RateLimit,
		auth.NewGinHandlers(services.Auth),
		roster.NewGinHandlers(services.Roster),
		reservation.NewGinHandlers(services.Reservation),
		payroll.NewGinHandlers(services.Payroll),
	)
	return router
}

// SetupRoutes configures all API endpoints and their handlers.
// Auth routes are public and limited per client IP. Everything else under
// /api needs a bearer token and is limited per user.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	rateLimit bool,
	authHandlers *auth.GinHandlers,
	rosterHandlers *roster.GinHandlers,
	reservationHandlers *reservation.GinHandlers,
	payrollHandlers *payroll.GinHandlers,
) {
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		if rateLimit {
			authGroup.Use(middleware.RateLimit())
		}
		{
			authGroup.POST("/signup", authHandlers.SignUpHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		protected := api.Group("")
		protected.Use(middleware.JWTAuth(jwtSecret))
		if rateLimit {
			protected.Use(middleware.RateLimit())
		}
		{
			protected.GET("/workspaces", rosterHandlers.ListWorkspacesHandler())
			protected.POST("/workspaces", rosterHandlers.CreateWorkspaceHandler())

			protected.GET("/instructors", rosterHandlers.ListInstructorsHandler())
			protected.POST("/instructors", rosterHandlers.CreateInstructorHandler())

			protected.GET("/members", rosterHandlers.ListMembersHandler())
			protected.POST("/members", rosterHandlers.CreateMemberHandler())

			protected.GET("/reservations", reservationHandlers.ListReservationsHandler())
			protected.POST("/reservations", reservationHandlers.CreateReservationHandler())
			protected.PATCH("/reservations/:id", reservationHandlers.RescheduleHandler())
			protected.DELETE("/reservations/:id", reservationHandlers.CancelHandler())

			protected.GET("/settlements/:year/:month", payrollHandlers.MonthlySettlementsHandler())
		}
	}

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})
}
