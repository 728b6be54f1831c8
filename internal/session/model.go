package session

import (
	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/catalog"
)

// OrderType selects the fulfillment mode for an order.
type OrderType string

const (
	OrderDelivery   OrderType = "delivery"
	OrderCollection OrderType = "collection"
)

// Input identifiers for Nav.TextRequestedFor: the free-text message the
// dialogue is currently waiting for, if any.
const (
	RequestCouponCode = "coupon_code"
	RequestPhone      = "phone"
	RequestAddress    = "address"
)

// Session is one user's conversational state: profile, cart and the
// navigation cursor. It is persisted wholesale after every mutation.
type Session struct {
	UserID int64   `json:"user_id"`
	Nav    Nav     `json:"nav"`
	Cart   []Line  `json:"cart"`
	User   Profile `json:"user"`

	maxQuantity int
	repo        Repository
	log         *zap.SugaredLogger
}

// Nav is the navigation cursor. Zero values mean "unset".
type Nav struct {
	CurrentLocation int64 `json:"current_location"`
	CurrentCategory int64 `json:"current_category"`
	CurrentItem     int64 `json:"current_menu_item"`

	Requested Requested `json:"requested"`

	// TextRequestedFor names the free-text input currently expected
	// (RequestCouponCode etc.); AfterRequestScreen is the action token
	// of the screen to return to once it arrives.
	TextRequestedFor   string `json:"text_requested_for"`
	AfterRequestScreen string `json:"after_request_screen"`

	// MessageIDs we sent to the user, kept for later cleanup.
	MessageIDs []int `json:"message_ids"`
}

// Requested records which share-prompts the user has already seen.
type Requested struct {
	UserLocation bool `json:"user_location"`
	UserPhone    bool `json:"user_phone"`
}

// Line is one cart entry. The UID is generated, not derived from the
// item, so the same menu item can sit in the cart as independent lines.
type Line struct {
	UID      string         `json:"uid"`
	ItemID   int64          `json:"id"`
	Quantity int            `json:"quantity"`
	Options  []ChosenOption `json:"options"`
}

// ChosenOption is a copy of a catalog option value selected for a line.
type ChosenOption struct {
	ValueID  int64   `json:"menu_option_value_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// Profile holds the user's checkout details.
type Profile struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	Coupon    *catalog.Coupon `json:"coupon"`
	OrderType OrderType       `json:"order_type"`
}

func newSession(userID int64) *Session {
	return &Session{
		UserID: userID,
		Cart:   []Line{},
		User:   Profile{OrderType: OrderDelivery},
	}
}

// save persists the session through its repository. Persistence errors
// are logged, not returned: losing one write must not break the
// conversation.
func (s *Session) save() {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(s); err != nil && s.log != nil {
		s.log.Errorw("session save failed", "user_id", s.UserID, "err", err)
	}
}
