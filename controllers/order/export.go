package orderControllers

import (
	"net/http"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// ExportOrdersToExcel builds the admin orders report.
func ExportOrdersToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Orders")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		// Header row
		headers := []string{
			"OrderNumber", "User", "Status", "PaymentStatus", "Items",
			"FurnitureRent", "ShippingCost", "SecurityDeposit", "TotalPrice",
			"ExpectedDelivery", "CreatedAt",
		}
		headerRow := sheet.AddRow()
		for _, h := range headers {
			headerRow.AddCell().SetValue(h)
		}

		// Data rows
		for _, o := range orders {
			row := sheet.AddRow()

			row.AddCell().SetValue(o.OrderNumber)
			row.AddCell().SetValue(o.UserID)
			row.AddCell().SetValue(string(o.Status))
			row.AddCell().SetValue(string(o.PaymentStatus))

			itemCount := 0
			for _, it := range o.Items {
				itemCount += it.Quantity
			}
			row.AddCell().SetValue(itemCount)

			row.AddCell().SetValue(pricing.Rupees(o.FurnitureRent).String())
			row.AddCell().SetValue(pricing.Rupees(o.ShippingCost).String())
			row.AddCell().SetValue(pricing.Rupees(o.SecurityDeposit).String())
			row.AddCell().SetValue(pricing.Rupees(o.TotalPrice).String())

			row.AddCell().SetValue(o.ExpectedDelivery.Format("2006-01-02"))
			row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		// Set response headers for download
		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
		}
	}
}
