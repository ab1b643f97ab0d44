package wishlistControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type WishlistItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
}

func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("user_id")
	userID, _ := userIDVal.(string)
	if !exists || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// POST /user/wishlist
func AddToWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var input WishlistItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var product models.Product
		if err := db.First(&product, "id = ?", input.ProductID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not exist"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var list models.Wishlist
			err := tx.Where("user_id = ?", userID).First(&list).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				list = models.Wishlist{UserID: userID}
				if err := tx.Create(&list).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			var existing models.WishlistItem
			err = tx.Where("wishlist_id = ? AND product_id = ?", list.ID, input.ProductID).First(&existing).Error
			if err == nil {
				return errors.New("product already in wishlist")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			return tx.Create(&models.WishlistItem{
				WishlistID: list.ID,
				ProductID:  input.ProductID,
				AddedAt:    time.Now(),
			}).Error
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Added product to wishlist"})
	}
}

// GET /user/wishlist
func GetWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var list models.Wishlist
		err := db.Preload("Products").Where("user_id = ?", userID).First(&list).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, models.Wishlist{UserID: userID, Products: []models.WishlistItem{}})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// DELETE /user/wishlist/:product_id
// Removing an absent product is a no-op.
func RemoveFromWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		productID := c.Param("product_id")

		var list models.Wishlist
		err := db.Where("user_id = ?", userID).First(&list).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
			return
		}

		if err := db.Where("wishlist_id = ? AND product_id = ?", list.ID, productID).
			Delete(&models.WishlistItem{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove item"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
	}
}

// DELETE /user/wishlist
func DeleteWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var list models.Wishlist
		err := db.Where("user_id = ?", userID).First(&list).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "Wishlist deleted"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
			return
		}

		if err := db.Select("Products").Delete(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete wishlist"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Wishlist deleted"})
	}
}
