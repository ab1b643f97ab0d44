package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryAppliance  ProductCategory = "appliance"
	CategoryLivingRoom ProductCategory = "livingroom"
	CategoryStorage    ProductCategory = "storage"
	CategoryStudyRoom  ProductCategory = "studyroom"
	CategoryBedroom    ProductCategory = "bedroom"
	CategoryTable      ProductCategory = "table"
	CategoryDiningRoom ProductCategory = "dinningroom"
	CategoryPackage    ProductCategory = "package"
)

type ProductSize string

const (
	SizeSmall  ProductSize = "small"
	SizeMedium ProductSize = "medium"
	SizeLarge  ProductSize = "large"
)

// ValidRentMonths is the closed set of rental terms a rate may be configured for.
var ValidRentMonths = []int{3, 6, 9, 12}

// IsValidRentMonths reports whether months is a configurable rental term.
func IsValidRentMonths(months int) bool {
	for _, m := range ValidRentMonths {
		if m == months {
			return true
		}
	}
	return false
}

type Product struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string          `gorm:"not null" json:"title"`
	SubTitle        string          `json:"sub_title"`
	Description     string          `json:"description"`
	Image           string          `json:"img"`
	Category        ProductCategory `gorm:"type:VARCHAR(20);index" json:"category"`
	Size            ProductSize     `gorm:"type:VARCHAR(10)" json:"size"`
	RentalRates     []RentalRate    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"rental_rates"`
	SecurityDeposit int64           `json:"security_deposit"` // paise, per unit
	Stock           int             `json:"stock"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// RentalRate is one row of a product's term rate table. The rate is the
// full rent for the term, in paise.
type RentalRate struct {
	ID        uint  `gorm:"primaryKey" json:"-"`
	ProductID uint  `gorm:"index:idx_product_months,unique" json:"-"`
	Months    int   `gorm:"index:idx_product_months,unique" json:"months"`
	Rate      int64 `gorm:"not null" json:"rate"` // paise
}

// TermRate returns the configured rate for the given rental term.
func (p *Product) TermRate(months int) (int64, bool) {
	for _, r := range p.RentalRates {
		if r.Months == months {
			return r.Rate, true
		}
	}
	return 0, false
}

// BeforeSave validates the rate table against the closed term set.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	for _, r := range p.RentalRates {
		if !IsValidRentMonths(r.Months) {
			return fmt.Errorf("invalid rental term %d for product %q", r.Months, p.Title)
		}
		if r.Rate < 0 {
			return fmt.Errorf("negative rate for product %q term %d", p.Title, r.Months)
		}
	}
	return nil
}
