package routes

import (
	cartControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/cart"
	orderControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/order"
	paymentControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/payment"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupAdminRoutes registers all “/admin/*” endpoints. Requires API‐Key middleware.
func SetupAdminRoutes(r *gin.Engine, db *gorm.DB) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey)
	{
		// ─────────── Order Management ───────────
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler(db))
			orderAdmin.GET("/export-excel", orderControllers.ExportOrdersToExcel(db))
			orderAdmin.GET("/:orderID/payments", paymentControllers.GetOrderPaymentsHandler(db))
		}

		// ─────────── Cart Inspection ───────────
		cartMgmt := adminGroup.Group("/user-cart")
		{
			cartMgmt.GET("/:user_id", cartControllers.GetAdminUserCart(db))
		}
	}
}
