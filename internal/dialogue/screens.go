package dialogue

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/money"
	"github.com/troioi-vn/tele-igniter/internal/session"
)

// locationScreen shows the category list for a selected location.
func (d *Dispatcher) locationScreen(s *session.Session, a action, r *Reply) {
	locationID, err := strconv.ParseInt(a.id, 10, 64)
	if err != nil {
		return
	}
	if !d.cat.IsActive(locationID) {
		d.log.Warn("inactive location selected", zap.Int64("user_id", s.UserID), zap.Int64("location", locationID))
		return
	}

	s.SetLocation(locationID)
	loc, _ := d.cat.Location(locationID)

	r.Text = fmt.Sprintf("📍<b>%s</b>", loc.Name)
	if d.cfg.IsAdmin(s.UserID) {
		r.Text += " (admin)"
	}

	sections := d.cat.Menu(locationID)
	for _, section := range sections {
		r.addRow(Button{section.Category.Name, fmt.Sprintf("category-%d", section.Category.ID)})
	}
	if len(sections) > 0 {
		r.Text += "\n\nPlease select a category"
	} else {
		r.Text += "\n\nThere are no categories for this location"
	}

	if d.cfg.IsAdmin(s.UserID) {
		r.addRow(Button{"🔄 Reload", "admin-reload"})
	}
}

// categoryScreen lists the items of one category with prices.
func (d *Dispatcher) categoryScreen(s *session.Session, a action, r *Reply) {
	categoryID, err := strconv.ParseInt(a.id, 10, 64)
	if err != nil {
		return
	}
	category, ok := d.cat.Category(categoryID)
	if !ok {
		r.Text = "This category is no longer available"
		return
	}

	s.SetCategory(categoryID)
	r.Text = fmt.Sprintf("<b>%s</b>", category.Name)

	itemIDs := d.cat.CategoryItems(s.Nav.CurrentLocation, categoryID)
	for _, itemID := range itemIDs {
		item, ok := d.cat.Item(itemID)
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s %s", item.Name, money.Format(item.Price, item.Currency))
		r.addRow(Button{label, fmt.Sprintf("item-%d", itemID)})
	}
	if len(itemIDs) > 0 {
		r.Text += "\n\nPlease select an item"
	} else {
		r.Text += "\n\nThere are no items in this category"
	}

	r.addRow(Button{"⬅️ Back", fmt.Sprintf("location-%d", s.Nav.CurrentLocation)})
}

// itemScreen shows one item, or runs the add-to-cart flow when the
// action carries the addtocart verb.
func (d *Dispatcher) itemScreen(s *session.Session, a action, r *Reply, f *flags) {
	itemID, err := strconv.ParseInt(a.id, 10, 64)
	if err != nil {
		return
	}
	item, ok := d.cat.Item(itemID)
	if !ok {
		r.Text = "This item is no longer available"
		return
	}

	switch a.verb {
	case "":
		d.itemView(s, item.ID, r)
	case "addtocart":
		d.addToCart(s, item.ID, a.param, r, f)
	}
}

func (d *Dispatcher) itemView(s *session.Session, itemID int64, r *Reply) {
	item, _ := d.cat.Item(itemID)
	s.SetItem(itemID)

	r.Text = fmt.Sprintf("<b>%s</b>", item.Name)
	if n := s.CartItemQuantity(itemID); n > 0 {
		r.Text += fmt.Sprintf(" (in a cart: %d)", n)
	}
	r.Text += fmt.Sprintf("\n\n%s", item.Description)
	r.Text += fmt.Sprintf("\n\nPrice: %s", money.Format(item.Price, item.Currency))
	r.Image = item.ImageURL

	r.addRow(Button{"🛒 Add to cart", fmt.Sprintf("item-%d-addtocart", itemID)})

	// Prev/next paging within the category.
	nav := row(Button{"⬅️ Back", fmt.Sprintf("category-%d", s.Nav.CurrentCategory)})
	itemIDs := d.cat.CategoryItems(s.Nav.CurrentLocation, s.Nav.CurrentCategory)
	if len(itemIDs) > 1 {
		index := -1
		for i, id := range itemIDs {
			if id == itemID {
				index = i
				break
			}
		}
		if index >= 0 {
			r.Text += fmt.Sprintf("\n\n%d of %d", index+1, len(itemIDs))
			if index > 0 {
				nav = append(nav, Button{"<<<", fmt.Sprintf("item-%d", itemIDs[index-1])})
			}
			if index < len(itemIDs)-1 {
				nav = append(nav, Button{">>>", fmt.Sprintf("item-%d", itemIDs[index+1])})
			}
		}
	}
	r.Keyboard = append(r.Keyboard, nav)
}

// addToCart asks for a quantity, then appends the line and prompts for
// an option when the item has an unresolved single-select group.
func (d *Dispatcher) addToCart(s *session.Session, itemID int64, param string, r *Reply, f *flags) {
	item, _ := d.cat.Item(itemID)

	if param == "" {
		r.Text = "How many?"
		var qtyRow []Button
		for i := 1; i <= d.cfg.MaxQuantity; i++ {
			qtyRow = append(qtyRow, Button{strconv.Itoa(i), fmt.Sprintf("item-%d-addtocart-%d", itemID, i)})
			if i%3 == 0 {
				r.Keyboard = append(r.Keyboard, qtyRow)
				qtyRow = nil
			}
		}
		if len(qtyRow) > 0 {
			r.Keyboard = append(r.Keyboard, qtyRow)
		}
		r.addRow(Button{"⬅️ Back", fmt.Sprintf("item-%d", itemID)})
		return
	}

	quantity, err := strconv.Atoi(param)
	if err != nil || quantity < 1 || quantity > d.cfg.MaxQuantity {
		r.Text = "Invalid quantity"
		r.addRow(Button{"⬅️ Back", fmt.Sprintf("item-%d", itemID)})
		return
	}

	uid := s.CartAppend(itemID, quantity)
	f.showCart = true
	r.Text = fmt.Sprintf("%d x %s added to your cart ✅", quantity, item.Name)

	if groups := d.cat.ItemOptions(itemID); len(groups) > s.CartOptionsCount(uid) {
		d.optionPrompt(s, uid, groups[0], item.Currency, r, f)
	}

	r.addRow(Button{fmt.Sprintf("⬅️ %s", item.Name), fmt.Sprintf("item-%d", itemID)})
	r.addRow(Button{"❌ Cancel", fmt.Sprintf("cart-%s-remove", uid)})
}
