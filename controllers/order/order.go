package orderControllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/inventory"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/notify"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart      = errors.New("cart is empty or not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be cancelled")
)

const expectedDeliveryDays = 7

// -------- Request Structs --------

type CreateOrderRequest struct {
	MerchantTxnID string          `json:"merchant_txn_id"` // optional, generated when absent
	Address       *models.Address `json:"address"`         // defaults to the profile address
}

type UpdateOrderStatusRequest struct {
	Status        string `json:"status" binding:"required"`
	AdminOverride bool   `json:"admin_override"`
}

type FeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

// CreateOrderResult carries the persisted order plus the gateway's
// redirect instructions for the client.
type CreateOrderResult struct {
	Order       *models.Order `json:"order"`
	RedirectURL string        `json:"redirect_url"`
}

// -------- Helpers --------

func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusKYCVerified):
		return models.OrderStatusKYCVerified, nil
	case string(models.OrderStatusShipped):
		return models.OrderStatusShipped, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusReturned):
		return models.OrderStatusReturned, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", errors.New("invalid order status")
	}
}

func destinationString(a models.Address) string {
	parts := []string{}
	for _, p := range []string{a.Line1, a.City, a.State, a.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// QuoteItemsForCart turns loaded cart items into pricing inputs. Caller
// must have loaded each product's rate table.
func QuoteItemsForCart(tx *gorm.DB, cart *models.Cart) ([]pricing.QuoteItem, []models.Product, error) {
	items := make([]pricing.QuoteItem, 0, len(cart.Items))
	products := make([]models.Product, 0, len(cart.Items))
	for _, ci := range cart.Items {
		var product models.Product
		if err := tx.Preload("RentalRates").First(&product, "id = ?", ci.ProductID).Error; err != nil {
			return nil, nil, fmt.Errorf("product %d: %w", ci.ProductID, err)
		}
		rates := make(map[int]int64, len(product.RentalRates))
		for _, r := range product.RentalRates {
			rates[r.Months] = r.Rate
		}
		items = append(items, pricing.QuoteItem{
			ProductID:       product.ID,
			Size:            product.Size,
			RentMonths:      ci.RentMonths,
			Quantity:        ci.Quantity,
			RatesByMonths:   rates,
			SecurityDeposit: product.SecurityDeposit,
		})
		products = append(products, product)
	}
	return items, products, nil
}

// -------- Core Logic --------

// CreateOrder prices the user's cart, initiates a payment intent and
// persists the order in unpaid state. The order row is written only after
// the gateway accepts the intent, so a gateway rejection leaves no orphan
// order. Inventory is NOT reserved here; that happens on confirmed payment.
func CreateOrder(db *gorm.DB, gw gateway.Gateway, dc pricing.DistanceClient, userID string, req CreateOrderRequest) (*CreateOrderResult, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	var cart models.Cart
	err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	address := user.Address
	if req.Address != nil {
		address = *req.Address
	}

	quoteItems, products, err := QuoteItemsForCart(db, &cart)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.ComputeQuote(quoteItems, WarehouseOrigin(), destinationString(address), dc)
	if err != nil {
		return nil, err
	}

	merchantTxnID := req.MerchantTxnID
	if merchantTxnID == "" {
		merchantTxnID = uuid.NewString()
	}

	// Gateway first: only a gateway-accepted intent gets an order row.
	redirectURL, err := gw.Initiate(gateway.InitiateRequest{
		MerchantTxnID: merchantTxnID,
		UserID:        userID,
		Amount:        quote.FinalCost,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := models.Order{
		MerchantTxnID:    merchantTxnID,
		UserID:           userID,
		FurnitureRent:    quote.FurnitureRent,
		ShippingCost:     quote.ShippingCost,
		SecurityDeposit:  quote.SecurityDeposit,
		TotalPrice:       quote.FinalCost,
		ShippingAddress:  address,
		ExpectedDelivery: now.AddDate(0, 0, expectedDeliveryDays),
		Status:           models.OrderStatusPending,
		PaymentStatus:    models.PaymentStatusUnpaid,
	}
	for i, ci := range cart.Items {
		rate, _ := products[i].TermRate(ci.RentMonths)
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      ci.ProductID,
			Title:          products[i].Title,
			RentMonths:     ci.RentMonths,
			Quantity:       ci.Quantity,
			Rate:           rate,
			ExpirationDate: now.AddDate(0, ci.RentMonths, 0),
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		number, err := models.NextOrderNumber(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Pending payment attempt recorded alongside the order
		return tx.Create(&models.Payment{
			OrderID:       order.ID,
			MerchantTxnID: merchantTxnID,
			Amount:        quote.FinalCost,
			Currency:      "INR",
			Status:        models.PaymentStatePending,
			UserID:        userID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	BroadcastOrderEvent(order, "order_created")
	return &CreateOrderResult{Order: &order, RedirectURL: redirectURL}, nil
}

// CancelOrder moves a non-terminal order to cancelled and releases its
// reserved stock exactly once. Cancelling twice is rejected; the stock
// credit never happens twice regardless.
func CancelOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID, models.CancellableStatuses()).
			Update("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return ErrOrderNotFound
			}
			return ErrNotCancellable
		}

		if err := tx.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}

		// Stock was only reserved if payment had been confirmed.
		if order.PaymentStatus == models.PaymentStatusPaid {
			if err := inventory.Release(tx, &order); err != nil {
				return err
			}
		}

		return notify.Enqueue(tx, "order_cancelled", order.UserID, map[string]interface{}{
			"order_number": order.OrderNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	BroadcastOrderEvent(order, "order_cancelled")
	return &order, nil
}

// UpdateOrderStatus applies a forward-only fulfillment transition.
// Backward jumps need adminOverride. A cancelled target is routed through
// CancelOrder so the stock release runs.
func UpdateOrderStatus(db *gorm.DB, orderID uint, newStatus models.OrderStatus, adminOverride bool) (*models.Order, error) {
	if newStatus == models.OrderStatusCancelled && !adminOverride {
		return CancelOrder(db, orderID)
	}

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if !adminOverride && !models.CanTransition(order.Status, newStatus) {
			if models.IsTerminal(order.Status) {
				return fmt.Errorf("order is already %s and accepts no further transitions", order.Status)
			}
			return fmt.Errorf("invalid status transition %s → %s", order.Status, newStatus)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
			Update("status", newStatus).Error; err != nil {
			return err
		}
		order.Status = newStatus

		if newStatus == models.OrderStatusDelivered {
			// Notification carries a product snapshot for the template
			lines := make([]map[string]interface{}, 0, len(order.Items))
			for _, it := range order.Items {
				lines = append(lines, map[string]interface{}{
					"title":       it.Title,
					"quantity":    it.Quantity,
					"rent_months": it.RentMonths,
					"expires_at":  it.ExpirationDate,
				})
			}
			return notify.Enqueue(tx, "order_delivered", order.UserID, map[string]interface{}{
				"order_number": order.OrderNumber,
				"items":        lines,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	BroadcastOrderEvent(order, "order_status_"+string(order.Status))
	return &order, nil
}

// WarehouseOrigin is the shipping origin used for distance lookups.
func WarehouseOrigin() string {
	if p := os.Getenv("WAREHOUSE_PINCODE"); p != "" {
		return p
	}
	return "221304" // default dispatch warehouse
}

// -------- Handlers --------

func CreateOrderHandler(db *gorm.DB, gw gateway.Gateway, dc pricing.DistanceClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		userID, _ := userIDVal.(string)
		if !exists || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req CreateOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		result, err := CreateOrder(db, gw, dc, userID, req)
		if err != nil {
			var termErr pricing.InvalidRentalTermError
			switch {
			case errors.Is(err, ErrEmptyCart):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty or not found"})
			case errors.As(err, &termErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": termErr.Error()})
			case errors.Is(err, pricing.ErrDistanceUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": "Could not resolve shipping distance"})
			case errors.Is(err, gateway.ErrUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable, please retry"})
			case errors.Is(err, gateway.ErrRejected):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Payment gateway rejected the request"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			}
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func GetMyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, _ := c.Get("user_id")
		userID, _ := userIDVal.(string)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var orders []models.Order
		if err := db.
			Where("user_id = ?", userID).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GetOrderByIDHandler accepts a numeric id or an order number.
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}

		var order models.Order
		query := db.Preload("User").Preload("Items")
		if strings.HasPrefix(id, "RMOR") {
			query = query.Where("order_number = ?", id)
		} else {
			query = query.Where("id = ?", id)
		}
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := UpdateOrderStatus(db, orderID, newStatus, req.AdminOverride)
		if err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.Is(err, ErrNotCancellable):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func CancelOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		order, err := CancelOrder(db, orderID)
		if err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.Is(err, ErrNotCancellable):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel order"})
			}
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func SubmitFeedbackHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		var req FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res := db.Model(&models.Order{}).Where("id = ?", orderID).Update("feedback", req.Feedback)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Feedback saved"})
	}
}

func parseOrderID(c *gin.Context) (uint, bool) {
	raw := c.Param("orderID")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
		return 0, false
	}
	var id uint
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderID must be numeric"})
		return 0, false
	}
	return id, true
}
