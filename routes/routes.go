package routes

import (
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes is the single entry-point that wires up user, order, payment
// and admin route groups with their shared collaborators.
func SetupRoutes(r *gin.Engine, db *gorm.DB, gw gateway.Gateway, dc pricing.DistanceClient) {
	// 1️⃣ User routes (JWT-protected): cart, wishlist, quote, catalog reads
	SetupUserRoutes(r, db, dc)

	// 2️⃣ Order routes
	SetupOrderRoutes(r, db, gw, dc)

	// 3️⃣ Payment routes: status poll + gateway callback
	SetupPaymentRoutes(r, db, gw)

	// 4️⃣ Admin routes (API-key-protected)
	SetupAdminRoutes(r, db)
}
