package dialogue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/session"
)

// resetLocationScreen handles switching restaurants. A non-empty cart
// gets a confirmation step first, since the cart is cleared with it.
func (d *Dispatcher) resetLocationScreen(s *session.Session, a action, r *Reply, f *flags) {
	step := a.id

	if step == "request" {
		if s.CartCount() > 0 {
			r.Text = "Your cart will be cleared"
			r.addRow(Button{"Ok", "resetlocation-confirm"})
			r.addRow(Button{"Cancel", fmt.Sprintf("location-%d", s.Nav.CurrentLocation)})
			return
		}
		step = "confirm"
	}

	if step == "confirm" {
		s.CartClear()
		s.NavReset()
		f.showHome = false
		f.showCart = false

		r.Text = "Please select a Restaurant:"
		for _, loc := range d.cat.ActiveLocations() {
			r.addRow(Button{loc.Name, fmt.Sprintf("location-%d", loc.ID)})
		}
	}
}

// adminScreen handles admin-only actions. Non-admins get nothing. A
// reload that exhausts the retry budget is returned as a fatal error:
// catalog availability is a hard dependency and the entry point decides
// whether to terminate.
func (d *Dispatcher) adminScreen(ctx context.Context, s *session.Session, a action, r *Reply) error {
	if !d.cfg.IsAdmin(s.UserID) {
		d.log.Warn("admin action from non-admin", zap.Int64("user_id", s.UserID), zap.String("action", a.id))
		return nil
	}

	if a.id == "reload" {
		if err := d.cat.Reload(ctx); err != nil {
			return err
		}
		r.Text = "Cache is cleared, data is reloaded"
	}

	r.addRow(Button{"⬅️ Back", fmt.Sprintf("location-%d", s.Nav.CurrentLocation)})
	return nil
}
