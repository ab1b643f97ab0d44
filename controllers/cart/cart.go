package cartControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// errTermMismatch rejects a re-add whose rental term differs from the
// existing line's. Quantities only merge within one term.
var errTermMismatch = errors.New("product already in cart with a different rental term")

type CartItemInput struct {
	ProductID  uint `json:"product_id" binding:"required"`
	RentMonths int  `json:"rent_months" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,min=1"`
}

type UpdateQuantityInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type ReplaceCartInput struct {
	Items []CartItemInput `json:"items" binding:"required,dive"`
}

func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// getOrCreateCart fetches the user's cart, creating it lazily on first add.
func getOrCreateCart(tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := tx.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// POST /user/cart
// Re-adding a product with the same term merges into the existing line's
// quantity instead of rejecting the duplicate; a different term conflicts.
func AddCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		// Fetch product with its rate table
		var product models.Product
		if err := db.Preload("RentalRates").First(&product, "id = ?", input.ProductID).Error; err != nil {
			status := http.StatusInternalServerError
			errMsg := "Failed to validate product"
			if errors.Is(err, gorm.ErrRecordNotFound) {
				status = http.StatusBadRequest
				errMsg = "Product does not exist"
			}
			c.JSON(status, gin.H{"error": errMsg})
			return
		}

		if _, ok := product.TermRate(input.RentMonths); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No rental rate configured for the chosen term"})
			return
		}

		var item models.CartItem
		err := db.Transaction(func(tx *gorm.DB) error {
			cart, err := getOrCreateCart(tx, userID)
			if err != nil {
				return err
			}

			err = tx.Where("cart_id = ? AND product_id = ?", cart.CartID, input.ProductID).First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				item = models.CartItem{
					CartID:     cart.CartID,
					ProductID:  product.ID,
					Title:      product.Title,
					RentMonths: input.RentMonths,
					Quantity:   input.Quantity,
					AddedAt:    time.Now(),
				}
				return tx.Create(&item).Error
			}
			if err != nil {
				return err
			}

			// Merge into the existing line
			if item.RentMonths != input.RentMonths {
				return errTermMismatch
			}
			item.Quantity += input.Quantity
			item.AddedAt = time.Now()
			return tx.Save(&item).Error
		})
		if errors.Is(err, errTermMismatch) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

// PUT /user/cart
// Sets a line's quantity; zero or below removes the line entirely.
func UpdateCartItemQuantity(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var input UpdateQuantityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var cart models.Cart
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}

		if input.Quantity <= 0 {
			if err := db.Where("cart_id = ? AND product_id = ?", cart.CartID, input.ProductID).
				Delete(&models.CartItem{}).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart item"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Cart item removed"})
			return
		}

		res := db.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.CartID, input.ProductID).
			Updates(map[string]interface{}{"quantity": input.Quantity, "added_at": time.Now()})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Cart item updated"})
	}
}

// DELETE /user/cart/:product_id
// Removing an absent line is a no-op, not an error.
func DeleteCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		productID := c.Param("product_id")

		var cart models.Cart
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusOK, gin.H{"message": "Cart item removed"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user cart"})
			return
		}

		if err := db.Where("cart_id = ? AND product_id = ?", cart.CartID, productID).
			Delete(&models.CartItem{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Cart item removed"})
	}
}

// PUT /user/cart/replace
// Bulk overwrite used for client-side cart reconciliation.
func ReplaceCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var input ReplaceCartInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var cartID uint
		err := db.Transaction(func(tx *gorm.DB) error {
			cart, err := getOrCreateCart(tx, userID)
			if err != nil {
				return err
			}
			cartID = cart.CartID
			if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			for _, in := range input.Items {
				var product models.Product
				if err := tx.Preload("RentalRates").First(&product, "id = ?", in.ProductID).Error; err != nil {
					return err
				}
				if _, ok := product.TermRate(in.RentMonths); !ok {
					return errors.New("no rental rate configured for the chosen term")
				}
				item := models.CartItem{
					CartID:     cart.CartID,
					ProductID:  product.ID,
					Title:      product.Title,
					RentMonths: in.RentMonths,
					Quantity:   in.Quantity,
					AddedAt:    time.Now(),
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var out models.Cart
		if err := db.Preload("Items").First(&out, "cart_id = ?", cartID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// DELETE /user/cart
// Idempotent: clearing a missing cart succeeds.
func ClearUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		if err := ClearCartForUser(db, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

// ClearCartForUser deletes the user's cart document and its items. Used by
// the handler above and by payment reconciliation on confirmed payment.
func ClearCartForUser(tx *gorm.DB, userID string) error {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&cart).Error
}

// GET /user/cart
// Always returns a cart shape; a user without a cart gets an empty one.
func GetUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var cart models.Cart
		err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, models.Cart{UserID: userID, Items: []models.CartItem{}})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}

// GET /admin/cart/:user_id
func GetAdminUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		var cart models.Cart
		err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, models.Cart{UserID: userID, Items: []models.CartItem{}})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		c.JSON(http.StatusOK, cart)
	}
}
