package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Fulfillment statuses (rental flow)
	OrderStatusPending     OrderStatus = "pending"      // Order placed, awaiting KYC
	OrderStatusKYCVerified OrderStatus = "kyc_verified" // Documents approved
	OrderStatusShipped     OrderStatus = "shipped"      // Out for delivery
	OrderStatusDelivered   OrderStatus = "delivered"    // Customer received the items
	OrderStatusReturned    OrderStatus = "returned"     // Items collected after the rental term
	OrderStatusCancelled   OrderStatus = "cancelled"    // Cancelled before delivery

	// Payment statuses
	PaymentStatusUnpaid PaymentStatus = "unpaid" // Awaiting gateway confirmation
	PaymentStatusPaid   PaymentStatus = "paid"   // Confirmed by the gateway, terminal
)

// forwardTransitions holds the allowed fulfillment moves. Backward jumps
// need an explicit admin override.
var forwardTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:     {OrderStatusKYCVerified, OrderStatusCancelled},
	OrderStatusKYCVerified: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:     {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:   {OrderStatusReturned},
	OrderStatusReturned:    {},
	OrderStatusCancelled:   {},
}

// CanTransition reports whether from -> to is a valid forward/cancel move.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment moves are allowed.
func IsTerminal(s OrderStatus) bool {
	return len(forwardTransitions[s]) == 0
}

// IsCancellable reports whether an order in status s may still be cancelled.
func IsCancellable(s OrderStatus) bool {
	return CanTransition(s, OrderStatusCancelled)
}

// CancellableStatuses lists every status a cancellation may move from.
func CancellableStatuses() []OrderStatus {
	out := make([]OrderStatus, 0, len(forwardTransitions))
	for s := range forwardTransitions {
		if IsCancellable(s) {
			out = append(out, s)
		}
	}
	return out
}

type Order struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	OrderNumber      string        `gorm:"uniqueIndex;not null" json:"order_number"` // RMOR000001, assigned once
	MerchantTxnID    string        `gorm:"uniqueIndex;not null" json:"merchant_txn_id"`
	UserID           string        `gorm:"not null;index" json:"user_id"`
	User             User          `gorm:"foreignKey:UserID" json:"user"`
	Items            []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	FurnitureRent    int64         `json:"furniture_rent"`   // paise
	ShippingCost     int64         `json:"shipping_cost"`    // paise
	SecurityDeposit  int64         `json:"security_deposit"` // paise
	TotalPrice       int64         `json:"total_price"`      // paise, frozen at creation
	ShippingAddress  Address       `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	ExpectedDelivery time.Time     `json:"expected_delivery"`
	Status           OrderStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:VARCHAR(10);default:'unpaid'" json:"payment_status"`
	PaymentNote      string        `json:"payment_note"` // last provider code on failure
	StockReleased    bool          `json:"-"`            // guards double-credit on cancel
	Feedback         string        `json:"feedback"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// OrderItem is a frozen rental line: rate and title are snapshots taken at
// creation, never recomputed from the catalog.
type OrderItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"index" json:"order_id"`
	ProductID      uint      `json:"product_id"`
	Title          string    `json:"title"`
	RentMonths     int       `json:"rent_months"`
	Quantity       int       `json:"quantity"`
	Rate           int64     `json:"rate"` // paise, for the full term
	ExpirationDate time.Time `json:"expiration_date"`
}
