package models

import (
	"fmt"

	"gorm.io/gorm"
)

const orderNumberPrefix = "RMOR"

// OrderCounter is a single-row atomic sequence for human-readable order
// numbers. The upsert-increment keeps assignment race-free without reading
// the current maximum.
type OrderCounter struct {
	ID         uint  `gorm:"primaryKey"`
	LastNumber int64 `gorm:"not null"`
}

// NextOrderNumber atomically claims the next order number. Call it inside
// the same transaction that persists the order.
func NextOrderNumber(tx *gorm.DB) (string, error) {
	var n int64
	err := tx.Raw(`
		INSERT INTO order_counters (id, last_number) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET last_number = order_counters.last_number + 1
		RETURNING last_number
	`).Scan(&n).Error
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return fmt.Sprintf("%s%06d", orderNumberPrefix, n), nil
}
