package routes

import (
	paymentControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/payment"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupPaymentRoutes(r *gin.Engine, db *gorm.DB, gw gateway.Gateway) {
	payment := r.Group("/payment")
	{
		// Poll the gateway and reconcile the order
		payment.GET("/status/:merchantTxnID", paymentControllers.PaymentStatusHandler(db, gw))

		// Server-to-server callback: middleware verifies the X-VERIFY checksum
		payment.POST("/callback",
			middleware.GatewayCallbackAuth(),
			paymentControllers.GatewayCallbackHandler(db, gw),
		)
	}
}
