package catalog

import "time"

// MenuSection is one category of a location's menu with its items in
// display order.
type MenuSection struct {
	Category Category
	ItemIDs  []int64
}

// ActiveLocations returns the locations the bot serves, i.e. the
// intersection of the remote catalog with the configured allow-list.
func (c *Client) ActiveLocations() []Location {
	return c.active
}

// Location looks up an active location by ID.
func (c *Client) Location(id int64) (Location, bool) {
	loc, ok := c.locations[id]
	return loc, ok
}

// IsActive reports whether a location ID is in the active set.
func (c *Client) IsActive(id int64) bool {
	_, ok := c.locations[id]
	return ok
}

// Category looks up a loaded category by ID.
func (c *Client) Category(id int64) (Category, bool) {
	cat, ok := c.categories[id]
	return cat, ok
}

// Item looks up a cached menu item by ID. Items are populated while
// menus load; a miss means the item is not on any active menu.
func (c *Client) Item(id int64) (MenuItem, bool) {
	item, ok := c.items[id]
	if !ok {
		return MenuItem{}, false
	}
	return *item, true
}

// Menu returns the location's menu as ordered sections.
func (c *Client) Menu(locationID int64) []MenuSection {
	menu, ok := c.menus[locationID]
	if !ok {
		return nil
	}
	sections := make([]MenuSection, 0, len(menu))
	for _, categoryID := range c.menuOrder[locationID] {
		sections = append(sections, MenuSection{
			Category: c.categories[categoryID],
			ItemIDs:  menu[categoryID],
		})
	}
	return sections
}

// CategoryItems returns the ordered item IDs for one category of a
// location's menu, or nil when either is unknown.
func (c *Client) CategoryItems(locationID, categoryID int64) []int64 {
	menu, ok := c.menus[locationID]
	if !ok {
		return nil
	}
	return menu[categoryID]
}

// ItemOptions returns the usable option groups of an item. Only the
// first single-select ("radio") group is considered usable; multi-select
// and other display types are a documented capability boundary, not a
// bug to fix here.
func (c *Client) ItemOptions(itemID int64) []OptionGroup {
	item, ok := c.items[itemID]
	if !ok {
		return nil
	}
	for _, group := range item.Options {
		if group.Kind == GroupSingleSelect {
			return []OptionGroup{group}
		}
	}
	return nil
}

// OptionList looks up a group in the menu-option reference list loaded
// at startup. Items carry their own copies; this is the canonical set.
func (c *Client) OptionList(id int64) (OptionGroup, bool) {
	group, ok := c.optionLists[id]
	return group, ok
}

// Coupon finds a loaded coupon by exact code match.
func (c *Client) Coupon(code string) (Coupon, bool) {
	for _, coupon := range c.coupons {
		if coupon.Code == code {
			return coupon, true
		}
	}
	return Coupon{}, false
}

// Currencies returns the enabled display currencies.
func (c *Client) Currencies() []Currency {
	return c.currencies
}

// IsOpen reports whether the location's schedule has a matching row
// covering t for the given service type ("delivery", "collection" or
// "opening"). A location with no schedule rows counts as open.
func (l Location) IsOpen(t time.Time, serviceType string) bool {
	matched := false
	hhmm := t.Format("15:04")
	for _, h := range l.Hours {
		if h.Type != serviceType || h.Weekday != int(t.Weekday()) {
			continue
		}
		matched = true
		if h.Status && h.Open <= hhmm && hhmm <= h.Close {
			return true
		}
	}
	return !matched
}
