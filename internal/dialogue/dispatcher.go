package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/catalog"
	"github.com/troioi-vn/tele-igniter/internal/config"
	"github.com/troioi-vn/tele-igniter/internal/session"
)

// Dispatcher is the front controller: it resolves the user's session,
// consults the catalog, applies the action to the session state and
// renders the next screen. One action is processed to completion before
// the next begins (single update-loop goroutine).
type Dispatcher struct {
	cfg   *config.Config
	cat   *catalog.Client
	store *session.Store
	log   *zap.Logger
}

func New(cfg *config.Config, cat *catalog.Client, store *session.Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, cat: cat, store: store, log: log}
}

// Session resolves the user's session, refreshing the profile name when
// the chat platform reports a change.
func (d *Dispatcher) Session(userID int64, firstName, lastName string) *session.Session {
	s := d.store.Get(userID)
	if s.User.FirstName != firstName || s.User.LastName != lastName {
		s.UpdateName(firstName, lastName)
	}
	return s
}

// ReloadCatalog refreshes the catalog between user actions. Used by
// the ops endpoint; failures past the retry budget are fatal, same as
// the admin button.
func (d *Dispatcher) ReloadCatalog(ctx context.Context) error {
	return d.cat.Reload(ctx)
}

// Forget drops the user's session; /start begins a clean conversation.
func (d *Dispatcher) Forget(userID int64) {
	if err := d.store.Forget(userID); err != nil {
		d.log.Warn("session delete failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Start renders the greeting and the location picker. With a single
// active location it is preselected behind a Continue button.
func (d *Dispatcher) Start(s *session.Session) Reply {
	d.log.Info("start command", zap.Int64("user_id", s.UserID))

	r := Reply{Text: d.cfg.StartMessage}
	active := d.cat.ActiveLocations()

	if len(active) == 1 {
		s.SetLocation(active[0].ID)
		r.addRow(Button{"Continue", fmt.Sprintf("location-%d", active[0].ID)})
		return r
	}

	r.Text += "\n\nPlease select a Restaurant:"
	for _, loc := range active {
		r.addRow(Button{loc.Name, fmt.Sprintf("location-%d", loc.ID)})
	}
	return r
}

// flags steer the shared navigation row appended after every screen.
type flags struct {
	showHome bool
	showCart bool
}

// Dispatch handles one button press and returns the rendered reply.
// A non-nil error is fatal (catalog connectivity lost past the retry
// budget); the caller decides whether to terminate.
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, data string) (Reply, error) {
	d.log.Info("button pressed", zap.Int64("user_id", s.UserID), zap.String("data", data))

	// A session that somehow lost its location falls back to the first
	// active one instead of dead-ending.
	if s.Nav.CurrentLocation == 0 {
		if active := d.cat.ActiveLocations(); len(active) > 0 {
			s.SetLocation(active[0].ID)
		}
	}

	a := parseAction(data)
	r := &Reply{}
	f := &flags{showHome: true, showCart: s.CartCount() > 0}

	switch a.screen {
	case "location":
		d.locationScreen(s, a, r)
	case "category":
		d.categoryScreen(s, a, r)
	case "item":
		d.itemScreen(s, a, r, f)
	case "cart":
		d.cartScreen(ctx, s, a, r, f)
	case "resetlocation":
		d.resetLocationScreen(s, a, r, f)
	case "admin":
		if err := d.adminScreen(ctx, s, a, r); err != nil {
			return Reply{}, err
		}
	}

	d.attachNavigation(s, data, r, f)
	if r.Text == "" {
		r.Text = d.cfg.UnknownErr
		d.log.Warn("sending empty reply", zap.String("data", data))
	}
	return *r, nil
}

// Text handles a free-text message routed by the pending input request.
func (d *Dispatcher) Text(ctx context.Context, s *session.Session, text string) Reply {
	r := &Reply{}

	switch s.Nav.TextRequestedFor {
	case session.RequestCouponCode:
		if coupon, ok := d.cat.Coupon(text); ok {
			s.UpdateCoupon(&coupon)
			r.Text = fmt.Sprintf("Coupon %s added!", text)
			r.Sticker = d.cfg.SuccessSticker
		} else {
			r.Text = fmt.Sprintf("Coupon %s is not valid!", text)
		}
		back := s.Nav.AfterRequestScreen
		if back == "" {
			back = "cart"
		}
		r.addRow(Button{"Back", back})
		s.ClearTextRequest()

	case session.RequestPhone:
		s.UpdatePhone(strings.TrimSpace(text))
		r.Text = "Phone number saved."
		r.addRow(Button{"Back", s.Nav.AfterRequestScreen})
		s.ClearTextRequest()

	case session.RequestAddress:
		s.UpdateAddress(strings.TrimSpace(text))
		r.Text = "Delivery address saved."
		r.addRow(Button{"Back", s.Nav.AfterRequestScreen})
		s.ClearTextRequest()
	}

	if r.Text == "" {
		r.Text = d.cfg.UnknownErr
	}
	return *r
}

// attachNavigation appends the shared navigation row: location reset on
// the home screen, the cart badge, and a home button.
func (d *Dispatcher) attachNavigation(s *session.Session, data string, r *Reply, f *flags) {
	var nav [][]Button

	if strings.HasPrefix(data, "location-") && len(d.cat.ActiveLocations()) > 1 {
		nav = append(nav, row(Button{"📍", "resetlocation-request"}))
	}

	// The coupon prompt and the home screen hide the home button.
	if strings.HasPrefix(data, "cart-0-coupon") || strings.HasPrefix(data, "location-") {
		f.showHome = false
	}

	if f.showCart && s.CartCount() > 0 {
		nav = append(nav, row(Button{fmt.Sprintf("🛒 Cart (%d)", s.CartCount()), "cart"}))
	}
	if f.showHome {
		nav = append(nav, row(Button{"🏠 Home", fmt.Sprintf("location-%d", s.Nav.CurrentLocation)}))
	}
	r.Keyboard = append(r.Keyboard, nav...)
}
