package session

import "github.com/troioi-vn/tele-igniter/internal/catalog"

// SetLocation moves the navigation cursor to a location.
func (s *Session) SetLocation(locationID int64) {
	s.Nav.CurrentLocation = locationID
	s.save()
}

// SetCategory moves the navigation cursor to a category.
func (s *Session) SetCategory(categoryID int64) {
	s.Nav.CurrentCategory = categoryID
	s.save()
}

// SetItem moves the navigation cursor to a menu item.
func (s *Session) SetItem(itemID int64) {
	s.Nav.CurrentItem = itemID
	s.save()
}

// RequestText records which free-text input the dialogue now expects
// and the screen to return to afterwards.
func (s *Session) RequestText(what, afterScreen string) {
	s.Nav.TextRequestedFor = what
	s.Nav.AfterRequestScreen = afterScreen
	s.save()
}

// ClearTextRequest resets the pending free-text expectation.
func (s *Session) ClearTextRequest() {
	s.Nav.TextRequestedFor = ""
	s.save()
}

// NavReset clears every navigation cursor field. Used when switching
// locations, which invalidates the category/item context.
func (s *Session) NavReset() {
	s.Nav = Nav{}
	s.save()
}

// RememberMessage appends a sent message ID for later cleanup.
func (s *Session) RememberMessage(messageID int) {
	s.Nav.MessageIDs = append(s.Nav.MessageIDs, messageID)
	s.save()
}

// UpdateName refreshes the profile name from the chat platform.
func (s *Session) UpdateName(firstName, lastName string) {
	s.User.FirstName = firstName
	s.User.LastName = lastName
	s.save()
}

// UpdatePhone stores the user's phone number.
func (s *Session) UpdatePhone(phone string) {
	s.User.Phone = phone
	s.save()
}

// UpdateAddress stores the delivery address.
func (s *Session) UpdateAddress(address string) {
	s.User.Address = address
	s.save()
}

// UpdateCoupon sets or clears the selected coupon. Validation against
// the catalog happens in the caller; this only stores the result.
func (s *Session) UpdateCoupon(coupon *catalog.Coupon) {
	s.User.Coupon = coupon
	s.save()
}

// SetOrderType selects delivery or collection fulfillment.
func (s *Session) SetOrderType(t OrderType) {
	s.User.OrderType = t
	s.save()
}
