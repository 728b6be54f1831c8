package session

import "github.com/troioi-vn/tele-igniter/internal/catalog"

// DeliveryFees carries the configured delivery pricing: a flat fee
// waived once the subtotal reaches FreeThreshold.
type DeliveryFees struct {
	Fee           float64
	FreeThreshold float64
}

// Totals is the computed price breakdown for a cart.
type Totals struct {
	Subtotal    float64
	Discount    float64
	DeliveryFee float64
	Total       float64
}

// ComputeTotals prices the cart. price resolves an item ID to its unit
// price; lines whose item is unknown contribute nothing. Subtotal is
// (item price + chosen option deltas) x quantity per line. The coupon
// discount is clamped to the subtotal, so the total never goes
// negative. The delivery fee applies only to delivery orders below the
// free-delivery threshold.
func ComputeTotals(lines []Line, price func(itemID int64) (float64, bool), coupon *catalog.Coupon, orderType OrderType, fees DeliveryFees) Totals {
	var t Totals

	for _, line := range lines {
		unit, ok := price(line.ItemID)
		if !ok {
			continue
		}
		for _, opt := range line.Options {
			unit += opt.Price
		}
		t.Subtotal += unit * float64(line.Quantity)
	}

	if coupon != nil {
		switch coupon.Type {
		case catalog.DiscountFixed:
			t.Discount = coupon.Discount
		case catalog.DiscountPercentage:
			t.Discount = t.Subtotal * coupon.Discount / 100
		}
		if t.Discount > t.Subtotal {
			t.Discount = t.Subtotal
		}
	}

	t.Total = t.Subtotal - t.Discount
	if t.Total < 0 {
		t.Total = 0
	}

	if len(lines) > 0 && orderType == OrderDelivery && t.Subtotal < fees.FreeThreshold {
		t.DeliveryFee = fees.Fee
		t.Total += fees.Fee
	}
	return t
}
