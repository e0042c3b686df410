package routes

import (
	"net/http"
	"time"

	"prbal/handlers"
	"prbal/middleware"
	"prbal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the endpoints for the booking lifecycle.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	api := r.Group("/api/bookings")
	{
		api.POST("", bh.CreateBooking)
		api.GET("/:id", bh.GetBooking)
		api.POST("/:id/start", bh.StartService)
		api.POST("/:id/confirm", bh.ConfirmCompletion)
		api.POST("/:id/cancel", bh.CancelBooking)
	}
}

// RegisterPaymentRoutes sets up the ledger and recovery endpoints.
func RegisterPaymentRoutes(r *gin.Engine, ph *handlers.PaymentHandler) {
	api := r.Group("/api/payments")
	{
		api.GET("/bookings/:id/ledger", ph.LedgerHistory)
		api.POST("/bookings/:id/settle", ph.RetrySettlement)
		api.POST("/bookings/:id/refund", ph.ManualRefund)
		api.PUT("/payout-accounts", ph.UpsertPayoutAccount)
	}
}

// RegisterHealthRoute registers a health-check endpoint backed by the
// background monitor snapshot.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, bh *handlers.BookingHandler, ph *handlers.PaymentHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, bh)
	RegisterPaymentRoutes(r, ph)
}
