package pricing

import (
	"errors"
	"fmt"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/shopspring/decimal"
)

// ErrDistanceUnavailable is returned when the distance collaborator cannot
// resolve a route to the destination.
var ErrDistanceUnavailable = errors.New("distance unavailable for destination")

// InvalidRentalTermError means a cart line picked a term the product has no
// configured rate for.
type InvalidRentalTermError struct {
	ProductID uint
	Months    int
}

func (e InvalidRentalTermError) Error() string {
	return fmt.Sprintf("no rental rate configured for product %d term %d months", e.ProductID, e.Months)
}

// DistanceClient resolves a driving route between two locations.
type DistanceClient interface {
	Distance(origin, destination string) (km float64, resolvedAddress string, err error)
}

// QuoteItem carries everything Quote needs about one cart line. Rates are
// in paise for the full rental term.
type QuoteItem struct {
	ProductID       uint
	Size            models.ProductSize
	RentMonths      int
	Quantity        int
	RatesByMonths   map[int]int64
	SecurityDeposit int64 // paise, per unit
}

// Quote is a priced cart. All amounts are paise; use Rupees for display.
type Quote struct {
	FurnitureRent   int64   `json:"furniture_rent"`
	ShippingCost    int64   `json:"shipping_cost"`
	SecurityDeposit int64   `json:"security_deposit"`
	FinalCost       int64   `json:"final_cost"`
	DistanceKm      float64 `json:"distance_km"`
	ResolvedAddress string  `json:"resolved_address"`
}

// shippingRate is the per-line delivery cost component for one size class.
type shippingRate struct {
	Base  int64 // paise flat
	PerKm int64 // paise per kilometre
}

// Small orders ship on a shared vehicle; above three lines a dedicated
// truck tier applies.
const smallOrderLineLimit = 3

var shippingRates = map[int]map[models.ProductSize]shippingRate{
	smallOrderLineLimit: {
		models.SizeSmall:  {Base: 9900, PerKm: 300},
		models.SizeMedium: {Base: 14900, PerKm: 500},
		models.SizeLarge:  {Base: 19900, PerKm: 800},
	},
	smallOrderLineLimit * 2: {
		models.SizeSmall:  {Base: 14900, PerKm: 500},
		models.SizeMedium: {Base: 19900, PerKm: 800},
		models.SizeLarge:  {Base: 24900, PerKm: 1200},
	},
}

// ComputeQuote prices a cart. Pure given its inputs: safe to call
// repeatedly for previews before order creation.
func ComputeQuote(items []QuoteItem, origin, destination string, dc DistanceClient) (Quote, error) {
	var q Quote

	km, resolved, err := dc.Distance(origin, destination)
	if err != nil {
		return q, fmt.Errorf("%w: %v", ErrDistanceUnavailable, err)
	}
	q.DistanceKm = km
	q.ResolvedAddress = resolved

	tier := smallOrderLineLimit
	if len(items) > smallOrderLineLimit {
		tier = smallOrderLineLimit * 2
	}
	rates := shippingRates[tier]

	kmDec := decimal.NewFromFloat(km)
	for _, it := range items {
		rate, ok := it.RatesByMonths[it.RentMonths]
		if !ok {
			return Quote{}, InvalidRentalTermError{ProductID: it.ProductID, Months: it.RentMonths}
		}
		q.FurnitureRent += rate * int64(it.Quantity)
		q.SecurityDeposit += it.SecurityDeposit * int64(it.Quantity)

		sr, ok := rates[it.Size]
		if !ok {
			sr = rates[models.SizeMedium]
		}
		perKm := decimal.NewFromInt(sr.PerKm).Mul(kmDec)
		q.ShippingCost += sr.Base + RoundToPaise(perKm)
	}

	q.FinalCost = q.FurnitureRent + q.ShippingCost + q.SecurityDeposit
	return q, nil
}

// Rupees converts a paise amount to a two-decimal rupee value.
func Rupees(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).Round(2)
}

// RoundToPaise rounds a fractional paise amount to a whole paise, half up
// (1200.005 rupees expressed in paise becomes 120001, i.e. 1200.01).
func RoundToPaise(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
