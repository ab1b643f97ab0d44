package routes

import (
	orderControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/order"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/middleware"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB, gw gateway.Gateway, dc pricing.DistanceClient) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Place a new order from the caller's cart
		orders.POST("/place", orderControllers.CreateOrderHandler(db, gw, dc))

		// Fetch the caller's own orders
		orders.GET("/my", orderControllers.GetMyOrdersHandler(db))

		// Fetch a single order by numeric ID or RMOR order number
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))

		// Update order status (e.g., shipped, delivered)
		orders.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(db))

		// Cancel an order
		orders.POST("/:orderID/cancel", orderControllers.CancelOrderHandler(db))

		// Submit feedback on a delivered order
		orders.POST("/:orderID/feedback", orderControllers.SubmitFeedbackHandler(db))
	}

	// websocket endpoint for real-time order updates
	r.GET("/ws/orders", orderControllers.OrderWebSocketHandler)
}
