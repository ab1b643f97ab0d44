package models

import "time"

type Wishlist struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"uniqueIndex" json:"user_id"` // one wishlist per user
	Products  []WishlistItem `gorm:"foreignKey:WishlistID;constraint:OnDelete:CASCADE" json:"products"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type WishlistItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	WishlistID uint      `gorm:"index:idx_wishlist_product,unique" json:"wishlist_id"`
	ProductID  uint      `gorm:"index:idx_wishlist_product,unique" json:"product_id"`
	AddedAt    time.Time `json:"added_at"`
}
