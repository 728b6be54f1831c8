package session

import "math/rand"

const uidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const uidLength = 8

func (s *Session) newUID() string {
	for {
		buf := make([]byte, uidLength)
		for i := range buf {
			buf[i] = uidAlphabet[rand.Intn(len(uidAlphabet))]
		}
		uid := string(buf)
		// 36^8 keys make a collision vanishingly unlikely, but a cart
		// must never hold two lines with the same uid.
		if s.findLine(uid) == -1 {
			return uid
		}
	}
}

func (s *Session) findLine(uid string) int {
	for i := range s.Cart {
		if s.Cart[i].UID == uid {
			return i
		}
	}
	return -1
}

// CartAppend adds a new line for the item and returns its uid. A
// quantity outside [1, max-quantity] is forced to 1 — not rejected.
func (s *Session) CartAppend(itemID int64, quantity int) string {
	if quantity < 1 || quantity > s.maxQuantity {
		if s.log != nil {
			s.log.Warnw("quantity out of range, forcing 1", "user_id", s.UserID, "quantity", quantity, "max", s.maxQuantity)
		}
		quantity = 1
	}
	uid := s.newUID()
	s.Cart = append(s.Cart, Line{
		UID:      uid,
		ItemID:   itemID,
		Quantity: quantity,
		Options:  []ChosenOption{},
	})
	s.save()
	return uid
}

// CartRemove deletes the line with the given uid. Unknown uids are a
// no-op, so removing twice is safe.
func (s *Session) CartRemove(uid string) {
	if i := s.findLine(uid); i >= 0 {
		s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
		s.save()
	}
}

// CartSetQuantity updates a line's quantity in place. No-op on unknown
// uids; the quantity is clamped the same way as CartAppend.
func (s *Session) CartSetQuantity(uid string, quantity int) {
	i := s.findLine(uid)
	if i < 0 {
		return
	}
	if quantity < 1 || quantity > s.maxQuantity {
		quantity = 1
	}
	s.Cart[i].Quantity = quantity
	s.save()
}

// CartSetOption appends a chosen option to a line. Option groups are
// resolved one prompt at a time, hence append rather than replace.
func (s *Session) CartSetOption(uid string, option ChosenOption) {
	i := s.findLine(uid)
	if i < 0 {
		return
	}
	s.Cart[i].Options = append(s.Cart[i].Options, option)
	s.save()
}

// CartItem returns the line with the given uid.
func (s *Session) CartItem(uid string) (Line, bool) {
	if i := s.findLine(uid); i >= 0 {
		return s.Cart[i], true
	}
	return Line{}, false
}

// CartCount is the sum of quantities across all lines. It doubles as
// the cart-badge number.
func (s *Session) CartCount() int {
	count := 0
	for _, line := range s.Cart {
		count += line.Quantity
	}
	return count
}

// CartOptionsCount reports how many options are already resolved for a
// line, to decide whether more option prompts are needed.
func (s *Session) CartOptionsCount(uid string) int {
	if i := s.findLine(uid); i >= 0 {
		return len(s.Cart[i].Options)
	}
	return 0
}

// CartItemQuantity sums the quantities of all lines holding the item.
func (s *Session) CartItemQuantity(itemID int64) int {
	count := 0
	for _, line := range s.Cart {
		if line.ItemID == itemID {
			count += line.Quantity
		}
	}
	return count
}

// CartClear empties the cart.
func (s *Session) CartClear() {
	s.Cart = []Line{}
	s.save()
}
