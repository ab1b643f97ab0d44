package routes

import (
	cartControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/cart"
	productcontroller "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/product"
	quoteControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/quote"
	wishlistControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/wishlist"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/middleware"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupUserRoutes registers all “/user/*” endpoints. Requires JWT middleware.
func SetupUserRoutes(r *gin.Engine, db *gorm.DB, dc pricing.DistanceClient) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetUserCart(db))                    // GET /user/cart
			cartGroup.POST("/", cartControllers.AddCartItem(db))                   // POST /user/cart
			cartGroup.PUT("/", cartControllers.ReplaceCart(db))                    // PUT /user/cart
			cartGroup.PATCH("/", cartControllers.UpdateCartItemQuantity(db))       // PATCH /user/cart
			cartGroup.DELETE("/:product_id", cartControllers.DeleteCartItem(db))   // DELETE /user/cart/:product_id
			cartGroup.DELETE("/", cartControllers.ClearUserCart(db))               // DELETE /user/cart
			cartGroup.POST("/quote", quoteControllers.GetTotalCostHandler(db, dc)) // POST /user/cart/quote
		}

		// ──────────────── Wishlist ────────────────
		wishlistGroup := userGroup.Group("/wishlist")
		{
			wishlistGroup.GET("/", wishlistControllers.GetWishlist(db))                      // GET /user/wishlist
			wishlistGroup.POST("/", wishlistControllers.AddToWishlist(db))                   // POST /user/wishlist
			wishlistGroup.DELETE("/:product_id", wishlistControllers.RemoveFromWishlist(db)) // DELETE /user/wishlist/:product_id
			wishlistGroup.DELETE("/", wishlistControllers.DeleteWishlist(db))                // DELETE /user/wishlist
		}

		// ──────────────── Browse Products ────────────────
		userGroup.GET("/products", productcontroller.GetProducts(db))        // GET /user/products
		userGroup.GET("/products/:id", productcontroller.GetProductByID(db)) // GET /user/products/:id
	}
}
