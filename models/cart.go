package models

import "time"

type Cart struct {
	CartID    uint       `gorm:"primaryKey" json:"cart_id"`
	UserID    string     `gorm:"uniqueIndex" json:"user_id"`                    // Enforces ONE cart per user
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // Cascade delete items if cart is deleted
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one rental selection. A product appears at most once per
// cart; re-adding merges into the existing quantity.
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CartID     uint      `gorm:"index:idx_cart_product,unique" json:"cart_id"`
	ProductID  uint      `gorm:"index:idx_cart_product,unique" json:"product_id"`
	Title      string    `json:"title"` // product title snapshot for display
	RentMonths int       `json:"rent_months"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"added_at"`
}
