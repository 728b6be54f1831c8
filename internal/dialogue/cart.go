package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/catalog"
	"github.com/troioi-vn/tele-igniter/internal/money"
	"github.com/troioi-vn/tele-igniter/internal/session"
)

func (d *Dispatcher) deliveryFees() session.DeliveryFees {
	return session.DeliveryFees{
		Fee:           d.cfg.DeliveryFee,
		FreeThreshold: d.cfg.FreeDeliveryThreshold,
	}
}

func (d *Dispatcher) priceOf(itemID int64) (float64, bool) {
	item, ok := d.cat.Item(itemID)
	if !ok {
		return 0, false
	}
	return item.Price, true
}

// cartScreen routes the cart verbs; with no verb it renders the summary.
func (d *Dispatcher) cartScreen(ctx context.Context, s *session.Session, a action, r *Reply, f *flags) {
	switch a.verb {
	case "":
		f.showCart = false
		d.cartSummary(s, r)
	case "clear":
		s.CartClear()
		r.Text = "Cart cleared"
	case "edit":
		d.cartEdit(s, r)
	case "remove":
		s.CartRemove(a.id)
		r.Text = "Item removed from cart"
		r.addRow(Button{"⬅️ Back", "cart"})
	case "setquantity":
		d.cartSetQuantity(s, a, r)
	case "setoption":
		d.cartSetOption(s, a, r)
	case "coupon":
		s.RequestText(session.RequestCouponCode, "cart")
		r.Text = "Please send me a coupon code"
		f.showHome = false
		f.showCart = false
	case "phone":
		s.RequestText(session.RequestPhone, "cart-0-checkout")
		r.Text = "Please send me your phone number"
		f.showHome = false
		f.showCart = false
	case "address":
		s.RequestText(session.RequestAddress, "cart-0-checkout")
		r.Text = "Please send me your delivery address"
		f.showHome = false
		f.showCart = false
	case "ordertype":
		d.cartOrderType(ctx, s, a, r)
	case "checkout":
		d.checkout(ctx, s, a, r)
	}
}

func (d *Dispatcher) cartSummary(s *session.Session, r *Reply) {
	if s.CartCount() == 0 {
		r.Text = "Cart is empty"
		return
	}

	r.Text = "🛒 <b>Your order is:</b>\n"
	for k, line := range s.Cart {
		item, ok := d.cat.Item(line.ItemID)
		if !ok {
			continue
		}
		if line.Quantity == 1 {
			r.Text += fmt.Sprintf("\n<b>%d. %s</b>  %s", k+1, item.Name, money.Format(item.Price, item.Currency))
		} else {
			linePrice := item.Price * float64(line.Quantity)
			r.Text += fmt.Sprintf("\n<b>%d. %s</b>        %s x %d = %s",
				k+1, item.Name, money.Format(item.Price, item.Currency), line.Quantity, money.Format(linePrice, item.Currency))
		}
		for _, opt := range line.Options {
			if opt.Price == 0 {
				r.Text += fmt.Sprintf("\n        %s", opt.Name)
			} else {
				r.Text += fmt.Sprintf("\n        %s (+%s)", opt.Name, money.Format(opt.Price, item.Currency))
			}
		}
	}

	totals := session.ComputeTotals(s.Cart, d.priceOf, s.User.Coupon, s.User.OrderType, d.deliveryFees())

	if coupon := s.User.Coupon; coupon != nil {
		if coupon.Type == catalog.DiscountPercentage {
			r.Text += fmt.Sprintf("\n\n🎁 <code>%s</code> (-%g%%)", coupon.Code, coupon.Discount)
		} else {
			r.Text += fmt.Sprintf("\n\n🎁 <code>%s</code> (-%s)", coupon.Code, money.Format(coupon.Discount, d.cfg.CurrencyCode))
		}
	}

	if totals.Discount > 0 {
		r.Text += fmt.Sprintf("\n\nSubtotal: %s", money.Format(totals.Subtotal, d.cfg.CurrencyCode))
		r.Text += fmt.Sprintf("\nDiscount: -%s", money.Format(totals.Discount, d.cfg.CurrencyCode))
	}
	if totals.DeliveryFee > 0 {
		r.Text += fmt.Sprintf("\nDelivery: %s", money.Format(totals.DeliveryFee, d.cfg.CurrencyCode))
	}
	r.Text += fmt.Sprintf("\n\n<b>Total: %s</b>", money.Format(totals.Total, d.cfg.CurrencyCode))

	r.addRow(Button{"✅ Checkout", "cart-0-checkout"})
	r.addRow(
		Button{"🗑 Clear cart", "cart-0-clear"},
		Button{"✏️ Edit cart", "cart-0-edit"},
	)
	r.addRow(Button{"🎁 Enter coupon code", "cart-0-coupon"})
}

func (d *Dispatcher) cartEdit(s *session.Session, r *Reply) {
	r.Text = "Please select an item to edit"
	for _, line := range s.Cart {
		item, ok := d.cat.Item(line.ItemID)
		if !ok {
			continue
		}
		r.addRow(Button{fmt.Sprintf("%s x %d ✏️", item.Name, line.Quantity), fmt.Sprintf("cart-%s-setquantity", line.UID)})
		r.addRow(Button{fmt.Sprintf("%s x %d ❌", item.Name, line.Quantity), fmt.Sprintf("cart-%s-remove", line.UID)})
	}
	r.addRow(Button{"Clear cart", "cart-0-clear"})
	r.addRow(Button{"⬅️ Back", "cart"})
}

func (d *Dispatcher) cartSetQuantity(s *session.Session, a action, r *Reply) {
	if a.param == "" {
		r.Text = "How many?"
		var qtyRow []Button
		for i := 1; i <= d.cfg.MaxQuantity; i++ {
			qtyRow = append(qtyRow, Button{strconv.Itoa(i), fmt.Sprintf("cart-%s-setquantity-%d", a.id, i)})
		}
		r.Keyboard = append(r.Keyboard, qtyRow)
		r.addRow(Button{"⬅️ Back", "cart"})
		return
	}

	quantity, err := strconv.Atoi(a.param)
	if err != nil {
		r.Text = "Invalid quantity"
		r.addRow(Button{"⬅️ Back", "cart"})
		return
	}
	s.CartSetQuantity(a.id, quantity)
	r.Text = fmt.Sprintf("Quantity set to %d", quantity)
	r.addRow(Button{"⬅️ Back", "cart"})
}

func (d *Dispatcher) cartSetOption(s *session.Session, a action, r *Reply) {
	line, ok := s.CartItem(a.id)
	if !ok {
		r.Text = "This cart item is gone"
		r.addRow(Button{"⬅️ Back", "cart"})
		return
	}
	item, _ := d.cat.Item(line.ItemID)

	groups := d.cat.ItemOptions(line.ItemID)
	if len(groups) == 0 {
		r.Text = "No options for this item"
		r.addRow(Button{"⬅️ Back", "cart"})
		return
	}
	valueID, err := strconv.ParseInt(a.param, 10, 64)
	if err != nil {
		return
	}

	// One group at a time; only the first is in play.
	for _, value := range groups[0].Values {
		if value.ID != valueID {
			continue
		}
		s.CartSetOption(a.id, session.ChosenOption{
			ValueID:  value.ID,
			Name:     value.Name,
			Price:    value.Price,
			Currency: item.Currency,
		})
		r.Text = fmt.Sprintf("Option set to %s", value.Name)
		r.addRow(Button{fmt.Sprintf("⬅️ Back to %s", item.Name), fmt.Sprintf("item-%d", line.ItemID)})
		return
	}
	r.Text = "This option is no longer available"
	r.addRow(Button{"⬅️ Back", "cart"})
}

// optionPrompt asks the user to resolve a single-select option group
// for a freshly added cart line.
func (d *Dispatcher) optionPrompt(s *session.Session, uid string, group catalog.OptionGroup, currency string, r *Reply, f *flags) {
	r.Text = fmt.Sprintf("Please select an option.\n\n<b>%s</b>", group.Name)

	var defaultValueID int64
	for _, value := range group.Values {
		if value.Default {
			defaultValueID = value.ID
		}
		label := fmt.Sprintf("%s (+%s)", value.Name, money.Format(value.Price, currency))
		r.addRow(Button{label, fmt.Sprintf("cart-%s-setoption-%d", uid, value.ID)})
	}
	if !group.Required {
		r.addRow(Button{"Skip", fmt.Sprintf("cart-%s-setoption-%d", uid, defaultValueID)})
	}

	f.showHome = false
	f.showCart = false
}

func (d *Dispatcher) cartOrderType(ctx context.Context, s *session.Session, a action, r *Reply) {
	switch a.param {
	case "delivery":
		s.SetOrderType(session.OrderDelivery)
	case "collection":
		s.SetOrderType(session.OrderCollection)
	}
	d.checkout(ctx, s, action{screen: "cart", id: "0", verb: "checkout"}, r)
}

// checkout shows the order summary; the confirm param places the order.
func (d *Dispatcher) checkout(ctx context.Context, s *session.Session, a action, r *Reply) {
	if s.CartCount() == 0 {
		r.Text = "Your cart is empty\nPlease add items to the cart"
		return
	}

	if a.param == "confirm" {
		d.placeOrder(ctx, s, r)
		return
	}

	totals := session.ComputeTotals(s.Cart, d.priceOf, s.User.Coupon, s.User.OrderType, d.deliveryFees())

	for _, line := range s.Cart {
		item, ok := d.cat.Item(line.ItemID)
		if !ok {
			continue
		}
		r.Text += fmt.Sprintf("\n\n<b>%s</b> - %s x %d", item.Name, money.Format(item.Price, item.Currency), line.Quantity)
	}
	r.Text += fmt.Sprintf("\n\n<b>Subtotal</b> - %s", money.Format(totals.Subtotal, d.cfg.CurrencyCode))
	if totals.DeliveryFee > 0 {
		r.Text += fmt.Sprintf("\n<b>Delivery</b> - %s", money.Format(totals.DeliveryFee, d.cfg.CurrencyCode))
	}
	r.Text += fmt.Sprintf("\n<b>Total</b> - %s", money.Format(totals.Total, d.cfg.CurrencyCode))

	if loc, ok := d.cat.Location(s.Nav.CurrentLocation); ok && !loc.IsOpen(time.Now(), string(s.User.OrderType)) {
		r.Text += "\n\n⚠️ The restaurant is closed right now; your order will be prepared once it opens."
	}

	if s.User.OrderType == session.OrderDelivery {
		r.Text += "\n\n🛵 Delivery"
		r.addRow(Button{"🏃 Switch to pick-up", "cart-0-ordertype-collection"})
	} else {
		r.Text += "\n\n🏃 Pick-up"
		r.addRow(Button{"🛵 Switch to delivery", "cart-0-ordertype-delivery"})
	}
	if s.User.Phone == "" {
		r.addRow(Button{"📞 Add phone number", "cart-0-phone"})
	}
	if s.User.OrderType == session.OrderDelivery && s.User.Address == "" {
		r.addRow(Button{"📍 Add delivery address", "cart-0-address"})
	}
	r.addRow(Button{"Checkout", "cart-0-checkout-confirm"})
}

func (d *Dispatcher) placeOrder(ctx context.Context, s *session.Session, r *Reply) {
	totals := session.ComputeTotals(s.Cart, d.priceOf, s.User.Coupon, s.User.OrderType, d.deliveryFees())

	order := catalog.OrderRequest{
		LocationID: s.Nav.CurrentLocation,
		FirstName:  s.User.FirstName,
		LastName:   s.User.LastName,
		Email:      d.cfg.CustomerEmail,
		Telephone:  s.User.Phone,
		Comment:    s.User.Address,
		OrderType:  string(s.User.OrderType),
		TotalItems: s.CartCount(),
		OrderTotal: totals.Total,
		AsAP:       true,
		Payment:    "cod",
		Totals:     OrderTotalRows(totals),
	}
	for _, line := range s.Cart {
		item, ok := d.cat.Item(line.ItemID)
		if !ok {
			continue
		}
		unit := item.Price
		var valueIDs []int64
		for _, opt := range line.Options {
			unit += opt.Price
			valueIDs = append(valueIDs, opt.ValueID)
		}
		order.Menus = append(order.Menus, catalog.OrderMenuLine{
			MenuID:         line.ItemID,
			Name:           item.Name,
			Quantity:       line.Quantity,
			Price:          item.Price,
			Subtotal:       unit * float64(line.Quantity),
			OptionValueIDs: valueIDs,
		})
	}

	if err := d.cat.CreateOrder(ctx, order); err != nil {
		d.log.Warn("order placement failed", zap.Int64("user_id", s.UserID), zap.Error(err))
		r.Text = "Sorry, we could not place your order. Please try again."
		r.addRow(Button{"⬅️ Back", "cart"})
		return
	}

	s.CartClear()
	s.UpdateCoupon(nil)
	r.Text = "✅ Order placed! We will contact you shortly."
}

// OrderTotalRows expands computed totals into the order document's
// totals breakdown.
func OrderTotalRows(t session.Totals) []catalog.OrderTotal {
	return []catalog.OrderTotal{
		{Code: "subtotal", Title: "Sub Total", Value: t.Subtotal, Priority: 0},
		{Code: "delivery", Title: "Delivery", Value: t.DeliveryFee, Priority: 100},
		{Code: "total", Title: "Order Total", Value: t.Total, Priority: 127},
	}
}
