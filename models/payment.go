package models

import "time"

type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
)

// Payment is one gateway attempt against an order. The row is created
// pending at checkout and resolved in place by reconciliation; a success
// after a resolved failure records a fresh attempt. At most one row per
// order reaches completed.
type Payment struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	OrderID       uint         `gorm:"index" json:"order_id"`
	MerchantTxnID string       `gorm:"index" json:"merchant_txn_id"`
	Amount        int64        `json:"amount"` // paise
	Currency      string       `gorm:"type:VARCHAR(3);default:'INR'" json:"currency"`
	Status        PaymentState `gorm:"type:VARCHAR(10);default:'pending'" json:"status"`
	ProviderRef   string       `json:"provider_ref"`
	UserID        string       `gorm:"index" json:"user_id"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
