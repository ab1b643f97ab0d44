package quoteControllers

import (
	"errors"
	"net/http"

	orderControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/order"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type QuoteRequest struct {
	Destination string `json:"destination" binding:"required"`
}

// POST /user/cart/quote
// Prices the current cart without creating anything. Callers preview the
// total as often as they like before checkout.
func GetTotalCostHandler(db *gorm.DB, dc pricing.DistanceClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, _ := c.Get("user_id")
		userID, _ := userIDVal.(string)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var cart models.Cart
		err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && len(cart.Items) == 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty or not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		items, _, err := orderControllers.QuoteItemsForCart(db, &cart)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart products"})
			return
		}

		quote, err := pricing.ComputeQuote(items, orderControllers.WarehouseOrigin(), req.Destination, dc)
		if err != nil {
			var termErr pricing.InvalidRentalTermError
			switch {
			case errors.As(err, &termErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": termErr.Error()})
			case errors.Is(err, pricing.ErrDistanceUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": "Could not resolve shipping distance"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute quote"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"product_cost":     pricing.Rupees(quote.FurnitureRent),
			"shipping_cost":    pricing.Rupees(quote.ShippingCost),
			"security_deposit": pricing.Rupees(quote.SecurityDeposit),
			"final_cost":       pricing.Rupees(quote.FinalCost),
			"distance":         quote.DistanceKm,
			"resolved_address": quote.ResolvedAddress,
		})
	}
}
