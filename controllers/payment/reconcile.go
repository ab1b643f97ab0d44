package paymentControllers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	cartControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/cart"
	orderControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/order"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/inventory"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/notify"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrInconsistentState means the provider reported success for an order
// that is already cancelled. Logged loudly; no payment side effects run.
var ErrInconsistentState = errors.New("payment reconciliation hit an inconsistent order state")

// errAlreadyPaid aborts the success transaction when a concurrent
// reconciliation flipped the order first. Everything rolls back and the
// call degrades to a replay.
var errAlreadyPaid = errors.New("order already paid")

// Reconcile fetches the provider's status for a transaction and applies it
// to the order exactly once. Safe to call any number of times: once the
// order is paid, further calls return it untouched.
//
// On first success the side effects run in one transaction — reserve
// inventory, record the completed payment, clear the user's cart — with the
// unpaid→paid flip as the final, conditional write. Any failure rolls the
// whole set back, and the next poll re-drives it.
func Reconcile(db *gorm.DB, gw gateway.Gateway, merchantTxnID string) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items").Where("merchant_txn_id = ?", merchantTxnID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderControllers.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return &order, nil // replay, not an error
	}

	status, err := gw.Status(merchantTxnID)
	if err != nil {
		return nil, err
	}

	if status.Success && order.Status == models.OrderStatusCancelled {
		log.Printf("🚨 Reconciliation for txn %s: provider reports success but order %s is cancelled", merchantTxnID, order.OrderNumber)
		return nil, ErrInconsistentState
	}

	switch {
	case status.Success:
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := inventory.Reserve(tx, inventory.LinesFromOrder(&order)); err != nil {
				return err
			}

			// Resolve the pending attempt from checkout; a fresh row is
			// only needed when an earlier failure already consumed it.
			payRes := tx.Model(&models.Payment{}).
				Where("merchant_txn_id = ? AND status = ?", merchantTxnID, models.PaymentStatePending).
				Updates(map[string]interface{}{
					"status":       models.PaymentStateCompleted,
					"provider_ref": status.ProviderRef,
				})
			if payRes.Error != nil {
				return payRes.Error
			}
			if payRes.RowsAffected == 0 {
				if err := tx.Create(&models.Payment{
					OrderID:       order.ID,
					MerchantTxnID: merchantTxnID,
					Amount:        order.TotalPrice,
					Currency:      "INR",
					Status:        models.PaymentStateCompleted,
					ProviderRef:   status.ProviderRef,
					UserID:        order.UserID,
				}).Error; err != nil {
					return err
				}
			}

			if err := cartControllers.ClearCartForUser(tx, order.UserID); err != nil {
				return err
			}

			if err := notify.Enqueue(tx, "order_paid", order.UserID, map[string]interface{}{
				"order_number": order.OrderNumber,
				"amount":       order.TotalPrice,
			}); err != nil {
				return err
			}

			// The flip is the commit point. It refuses cancelled orders so
			// a cancellation committed after the snapshot read above cannot
			// end up cancelled and paid with stock reserved. Zero rows
			// either way rolls everything back.
			res := tx.Model(&models.Order{}).
				Where("id = ? AND payment_status = ? AND status <> ?",
					order.ID, models.PaymentStatusUnpaid, models.OrderStatusCancelled).
				Update("payment_status", models.PaymentStatusPaid)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var current models.Order
				if err := tx.First(&current, "id = ?", order.ID).Error; err != nil {
					return err
				}
				if current.Status == models.OrderStatusCancelled {
					log.Printf("🚨 Reconciliation for txn %s: order %s was cancelled mid-flight, rolling back", merchantTxnID, order.OrderNumber)
					return ErrInconsistentState
				}
				return errAlreadyPaid
			}
			return nil
		})
		if err != nil && !errors.Is(err, errAlreadyPaid) {
			return nil, err
		}

		if err := db.Preload("Items").First(&order, "id = ?", order.ID).Error; err != nil {
			return nil, err
		}
		orderControllers.BroadcastOrderEvent(order, "order_paid")
		return &order, nil

	case status.Pending():
		return &order, nil // nothing to apply yet

	default:
		// Definitive failure: note it, resolve the pending attempt, touch
		// neither inventory nor cart. The conditional update makes replays
		// no-ops instead of piling up failed rows on every poll.
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Order{}).
				Where("id = ? AND payment_status = ?", order.ID, models.PaymentStatusUnpaid).
				Update("payment_note", status.Code).Error; err != nil {
				return err
			}
			return tx.Model(&models.Payment{}).
				Where("merchant_txn_id = ? AND status = ?", merchantTxnID, models.PaymentStatePending).
				Updates(map[string]interface{}{
					"status":       models.PaymentStateFailed,
					"provider_ref": status.ProviderRef,
				}).Error
		})
		if err != nil {
			return nil, err
		}
		order.PaymentNote = status.Code
		return &order, nil
	}
}

// -------- Handlers --------

// GET /payment/status/:merchantTxnID
// Client-facing poll; doubles as the reconciliation driver.
func PaymentStatusHandler(db *gorm.DB, gw gateway.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantTxnID := c.Param("merchantTxnID")
		if merchantTxnID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "merchantTxnID is required"})
			return
		}

		order, err := Reconcile(db, gw, merchantTxnID)
		if err != nil {
			respondReconcileError(c, err)
			return
		}

		message := "Payment pending"
		switch {
		case order.PaymentStatus == models.PaymentStatusPaid:
			message = "Payment confirmed"
		case order.PaymentNote != "":
			message = "Payment failed, no charge applied"
		}
		c.JSON(http.StatusOK, gin.H{
			"order":          order,
			"payment_status": order.PaymentStatus,
			"message":        message,
		})
	}
}

type callbackBody struct {
	Response string `json:"response"` // base64 provider payload
}

type callbackPayload struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	Data                  struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
	} `json:"data"`
}

// POST /payment/callback
// The checksum middleware has already verified X-VERIFY. The decoded
// payload only identifies the transaction; the authoritative status still
// comes from a direct provider poll inside Reconcile.
func GatewayCallbackHandler(db *gorm.DB, gw gateway.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body callbackBody
		if err := c.ShouldBindJSON(&body); err != nil || body.Response == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback body"})
			return
		}

		raw, err := base64.StdEncoding.DecodeString(body.Response)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "callback payload is not base64"})
			return
		}

		var payload callbackPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "callback payload is not valid JSON"})
			return
		}
		merchantTxnID := payload.MerchantTransactionID
		if merchantTxnID == "" {
			merchantTxnID = payload.Data.MerchantTransactionID
		}
		if merchantTxnID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "callback missing merchantTransactionId"})
			return
		}

		order, err := Reconcile(db, gw, merchantTxnID)
		if err != nil {
			respondReconcileError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_number": order.OrderNumber, "payment_status": order.PaymentStatus})
	}
}

// GET /orders/:orderID/payments
func GetOrderPaymentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		if orderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}
		var payments []models.Payment
		if err := db.Where("order_id = ?", orderID).Order("created_at").Find(&payments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}

func respondReconcileError(c *gin.Context, err error) {
	var stockErr inventory.InsufficientStockError
	switch {
	case errors.Is(err, orderControllers.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found for transaction"})
	case errors.Is(err, ErrInconsistentState):
		c.JSON(http.StatusConflict, gin.H{"error": "order is cancelled; payment not applied"})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{"error": stockErr.Error()})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, please retry"})
	case errors.Is(err, gateway.ErrRejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway rejected the status check"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile payment"})
	}
}
