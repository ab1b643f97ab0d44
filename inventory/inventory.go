package inventory

import (
	"fmt"
	"log"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"gorm.io/gorm"
)

// InsufficientStockError names the first product that could not be
// reserved. No partial decrements survive the failure.
type InsufficientStockError struct {
	ProductID uint
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// Line is one reservation request.
type Line struct {
	ProductID uint
	Quantity  int
}

// LinesFromOrder maps an order's items to reservation lines.
func LinesFromOrder(order *models.Order) []Line {
	lines := make([]Line, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// Reserve decrements stock for every line, or for none. Each decrement is a
// single conditional UPDATE (stock >= requested), so two concurrent
// reservations can never both pass a stale check and drive stock negative.
// Lines already applied are re-credited when a later line falls short, so
// the result holds even when tx is not a wrapping transaction.
func Reserve(tx *gorm.DB, lines []Line) error {
	for i, line := range lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("invalid reservation quantity %d for product %d", line.Quantity, line.ProductID)
		}
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
		if res.Error != nil {
			compensate(tx, lines[:i])
			return res.Error
		}
		if res.RowsAffected == 0 {
			compensate(tx, lines[:i])
			return InsufficientStockError{ProductID: line.ProductID}
		}
	}
	return nil
}

// compensate re-credits lines that were already decremented.
func compensate(tx *gorm.DB, applied []Line) {
	for _, line := range applied {
		if err := increment(tx, line); err != nil {
			log.Printf("❌ Failed to roll back reservation for product %d: %v", line.ProductID, err)
		}
	}
}

// Release credits an order's reserved stock back, exactly once per order.
// The stock_released flag is flipped with a conditional update in the same
// transaction, so a second release is a no-op.
func Release(tx *gorm.DB, order *models.Order) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND stock_released = ?", order.ID, false).
		UpdateColumn("stock_released", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already released
	}
	for _, line := range LinesFromOrder(order) {
		if err := increment(tx, line); err != nil {
			return err
		}
	}
	order.StockReleased = true
	return nil
}

func increment(tx *gorm.DB, line Line) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", line.ProductID).
		UpdateColumn("stock", gorm.Expr("stock + ?", line.Quantity)).Error
}
