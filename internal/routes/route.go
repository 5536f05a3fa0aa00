package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/servicehub/internal/container"
	"github.com/joshua-takyi/servicehub/internal/handlers"
	"github.com/joshua-takyi/servicehub/internal/middleware"
	"github.com/joshua-takyi/servicehub/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	bookings := container.BookingService
	secureCookies := cfg.IsProduction()

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "OK",
				"service": "servicehub-api",
			})
		})
		v1.POST("/auth/refresh", handlers.RefreshSession(container.UserService, secureCookies))
		v1.POST("/auth/logout", handlers.Logout(secureCookies))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.TokenValidator, container.UserService, secureCookies, container.Logger))

	protected.GET("/profile", handlers.GetProfile(container.UserService))
	protected.GET("/ws", handlers.ServeWS(container.Hub, bookings, container.MongoRepo, cfg.AllowedOrigins, container.Logger))

	bookingRoutes := protected.Group("/bookings")
	{
		bookingRoutes.POST("",
			middleware.RequireRole(models.RoleUser),
			middleware.RateLimit(container.BookingLimiter),
			handlers.CreateBooking(bookings),
		)
		bookingRoutes.GET("", handlers.ListBookings(bookings))
		bookingRoutes.GET("/:id", handlers.GetBooking(bookings))
		bookingRoutes.PATCH("/:id/status", middleware.RequireRole(models.RoleUser, models.RoleProvider), handlers.UpdateBookingStatus(bookings))
		bookingRoutes.PATCH("/:id/schedule", middleware.RequireRole(models.RoleUser, models.RoleAdmin), handlers.RescheduleBooking(bookings))
		bookingRoutes.PATCH("/:id/notes", handlers.UpdateBookingNotes(bookings))
		bookingRoutes.POST("/:id/photos", middleware.RequireRole(models.RoleProvider), handlers.UploadServicePhotos(bookings))
	}

	providerRoutes := protected.Group("/provider", middleware.RequireRole(models.RoleProvider))
	{
		providerRoutes.POST("/bookings/:id/claim", handlers.ClaimBooking(bookings))
	}

	adminRoutes := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	{
		adminRoutes.PATCH("/bookings/:id/status", handlers.AdminUpdateBookingStatus(bookings))
		adminRoutes.PUT("/bookings/:id/provider", handlers.AssignProvider(bookings))
		adminRoutes.GET("/services/:id/candidates", handlers.ListCandidates(bookings))
	}

	return r
}
