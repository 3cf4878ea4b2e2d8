package routes

import (
	"bookflow/handlers"
	"bookflow/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers all endpoints for the booking engine.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	api := r.Group("/api/bookings")
	api.Use(middleware.RateLimitMiddleware(), middleware.CurrentUserMiddleware())
	{
		api.POST("", bh.CreateBooking)
		api.GET("/:id", bh.GetBooking)
		api.GET("/:id/history", bh.GetBookingHistory)
		api.POST("/:id/transition", bh.TransitionBooking)
		api.POST("/:id/checkout", bh.InitiateCheckout)
		api.POST("/:id/cancel", bh.CancelBooking)
		api.POST("/:id/recover", middleware.RequireRole("admin"), bh.RecoverBooking)
	}

	r.POST("/api/scheduling/link", middleware.RateLimitMiddleware(), middleware.CurrentUserMiddleware(), bh.CreateSchedulingLink)
}

// RegisterWebhookRoutes registers the inbound provider webhook endpoints.
// These are signature-authenticated, not user-authenticated.
func RegisterWebhookRoutes(r *gin.Engine, wh *handlers.WebhookHandler) {
	hooks := r.Group("/webhooks")
	{
		hooks.POST("/scheduling", wh.HandleSchedulingWebhook)
		hooks.POST("/payment", wh.HandlePaymentWebhook)
	}
}
