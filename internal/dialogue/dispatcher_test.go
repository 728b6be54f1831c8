package dialogue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/catalog"
	"github.com/troioi-vn/tele-igniter/internal/config"
	"github.com/troioi-vn/tele-igniter/internal/session"
)

// ordersRecorder captures order documents posted by checkout.
type ordersRecorder struct {
	orders []catalog.OrderRequest
	reject bool
}

// fixture serves a one-location catalog: category Soups holding item
// Pho Bo (50000 VND) with a required radio Size group, plus the WELCOME
// coupon. Orders posted to it are recorded.
func fixture(t *testing.T, rec *ordersRecorder) *httptest.Server {
	t.Helper()

	bodies := map[string]string{
		"/locations":   `{"data":[{"type":"locations","id":"1","attributes":{"location_name":"Pho Corner"}}]}`,
		"/locations/1": `{"data":{"type":"locations","id":"1","attributes":{"location_name":"Pho Corner"}}}`,
		"/categories":  `{"data":[{"type":"categories","id":"10","attributes":{"name":"Soups"}}]}`,
		"/categories/10": `{"data":{"type":"categories","id":"10","attributes":{"name":"Soups"},
			"relationships":{"locations":{"data":[{"type":"locations","id":"1"}]}}}}`,
		"/menu_item_options": `{"data":[{"type":"menu_item_options","id":"20","attributes":{"option_name":"Size","display_type":"radio","required":true,"menu_option_values":[
			{"menu_option_value_id":7,"name":"Regular","price":0,"is_default":true},
			{"menu_option_value_id":8,"name":"Large","price":10000}
		]}}]}`,
		"/currencies": `{"data":[{"type":"currencies","id":"1","attributes":{"currency_code":"VND","currency_symbol":"₫"}}]}`,
		"/coupons":    `{"data":[{"type":"coupons","id":"3","attributes":{"code":"WELCOME","type":"P","discount":10}}]}`,
		"/menus":      `{"data":[{"type":"menus","id":"100","attributes":{"menu_name":"Pho Bo"}}]}`,
		"/menus/100": `{"data":{"type":"menus","id":"100","attributes":{"menu_name":"Pho Bo","menu_description":"Beef noodle soup","menu_price":50000,"currency":"VND"},
			"relationships":{"categories":{"data":[{"type":"categories","id":"10"}]}}},"included":[
			{"type":"menu_options","id":"20","attributes":{"option_name":"Size","display_type":"radio","required":true,"menu_option_values":[
				{"menu_option_value_id":7,"name":"Regular","price":0,"is_default":true},
				{"menu_option_value_id":8,"name":"Large","price":10000}
			]}}
		]}`,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/orders" {
			if rec.reject {
				http.Error(w, "no", http.StatusUnprocessableEntity)
				return
			}
			var order catalog.OrderRequest
			if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			rec.orders = append(rec.orders, order)
			w.WriteHeader(http.StatusCreated)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
}

func testDispatcher(t *testing.T) (*Dispatcher, *session.Store, *ordersRecorder) {
	t.Helper()

	rec := &ordersRecorder{}
	srv := fixture(t, rec)
	t.Cleanup(srv.Close)

	cat := catalog.New(catalog.Options{
		BaseURL:     srv.URL,
		LocationIDs: []int64{1},
		MaxAttempts: 2,
	}, zap.NewNop())
	require.NoError(t, cat.Load(context.Background()))

	cfg := &config.Config{
		MaxQuantity:           5,
		CurrencyCode:          "VND",
		DeliveryFee:           20000,
		FreeDeliveryThreshold: 200000,
		CustomerEmail:         "orders@pho.example",
		StartMessage:          "Welcome! Hungry?",
		UnknownErr:            "Something went wrong",
		SuccessSticker:        "STICKER-ID",
		Admins:                []int64{99},
	}
	store := session.NewStore(session.NewInMemoryRepository(), cfg.MaxQuantity, zap.NewNop())
	return New(cfg, cat, store, zap.NewNop()), store, rec
}

func findButton(r Reply, actionPrefix string) (Button, bool) {
	for _, row := range r.Keyboard {
		for _, b := range row {
			if strings.HasPrefix(b.Action, actionPrefix) {
				return b, true
			}
		}
	}
	return Button{}, false
}

func dispatch(t *testing.T, d *Dispatcher, s *session.Session, data string) Reply {
	t.Helper()
	r, err := d.Dispatch(context.Background(), s, data)
	require.NoError(t, err)
	return r
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		data string
		want action
	}{
		{"location-12", action{screen: "location", id: "12"}},
		{"category-10", action{screen: "category", id: "10"}},
		{"item-3-addtocart-2", action{screen: "item", id: "3", verb: "addtocart", param: "2"}},
		{"cart", action{screen: "cart"}},
		{"cart-AB12CD34-setoption-9", action{screen: "cart", id: "AB12CD34", verb: "setoption", param: "9"}},
		{"resetlocation-request", action{screen: "resetlocation", id: "request"}},
		{"admin-reload", action{screen: "admin", id: "reload"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseAction(tc.data), tc.data)
	}
}

func TestStartPreselectsSingleLocation(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	r := d.Start(s)
	assert.Contains(t, r.Text, "Welcome! Hungry?")
	assert.Equal(t, int64(1), s.Nav.CurrentLocation)

	b, ok := findButton(r, "location-1")
	require.True(t, ok)
	assert.Equal(t, "Continue", b.Label)
}

func TestLocationScreenListsCategories(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	r := dispatch(t, d, s, "location-1")
	assert.Contains(t, r.Text, "Pho Corner")
	b, ok := findButton(r, "category-10")
	require.True(t, ok)
	assert.Equal(t, "Soups", b.Label)

	// Non-admins never see the reload button.
	_, ok = findButton(r, "admin-reload")
	assert.False(t, ok)
}

func TestItemView(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "category-10")

	r := dispatch(t, d, s, "item-100")
	assert.Contains(t, r.Text, "Pho Bo")
	assert.Contains(t, r.Text, "50 000 ₫")

	_, ok := findButton(r, "item-100-addtocart")
	assert.True(t, ok)
	assert.Equal(t, int64(100), s.Nav.CurrentItem)
}

func TestAddToCartFlow(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	r := dispatch(t, d, s, "item-100-addtocart")
	assert.Contains(t, r.Text, "How many?")
	_, ok := findButton(r, "item-100-addtocart-5")
	require.True(t, ok)
	_, ok = findButton(r, "item-100-addtocart-6")
	assert.False(t, ok, "quantities above max-quantity must not be offered")

	r = dispatch(t, d, s, "item-100-addtocart-2")
	assert.Contains(t, r.Text, "added to your cart")
	assert.Equal(t, 2, s.CartCount())

	// The required Size group is prompted right away.
	assert.Contains(t, r.Text, "Size")
	require.Len(t, s.Cart, 1)
	uid := s.Cart[0].UID
	_, ok = findButton(r, "cart-"+uid+"-setoption-8")
	require.True(t, ok)
	// Required group: no Skip.
	for _, row := range r.Keyboard {
		for _, b := range row {
			assert.NotEqual(t, "Skip", b.Label)
		}
	}

	r = dispatch(t, d, s, "cart-"+uid+"-setoption-8")
	assert.Contains(t, r.Text, "Option set to Large")
	line, _ := s.CartItem(uid)
	require.Len(t, line.Options, 1)
	assert.Equal(t, 10000.0, line.Options[0].Price)
}

func TestAddToCartRejectsBadQuantity(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	for _, param := range []string{"0", "99", "x"} {
		r := dispatch(t, d, s, "item-100-addtocart-"+param)
		assert.Contains(t, r.Text, "Invalid quantity", "param %q", param)
	}
	assert.Equal(t, 0, s.CartCount())
}

func TestCartSummary(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	r := dispatch(t, d, s, "cart")
	assert.Contains(t, r.Text, "Cart is empty")

	dispatch(t, d, s, "item-100-addtocart-2")
	r = dispatch(t, d, s, "cart")
	assert.Contains(t, r.Text, "Your order is")
	assert.Contains(t, r.Text, "Pho Bo")
	// 100000 subtotal + 20000 delivery, default order type is delivery.
	assert.Contains(t, r.Text, "Total: 120 000 ₫")

	dispatch(t, d, s, "cart-0-clear")
	assert.Equal(t, 0, s.CartCount())
}

func TestCouponTextFlow(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "item-100-addtocart-1")

	r := dispatch(t, d, s, "cart-0-coupon")
	assert.Contains(t, r.Text, "coupon code")
	assert.Equal(t, session.RequestCouponCode, s.Nav.TextRequestedFor)

	r = d.Text(context.Background(), s, "WELCOME")
	assert.Contains(t, r.Text, "Coupon WELCOME added!")
	assert.Equal(t, "STICKER-ID", r.Sticker)
	require.NotNil(t, s.User.Coupon)
	assert.Equal(t, catalog.DiscountPercentage, s.User.Coupon.Type)
	assert.Empty(t, s.Nav.TextRequestedFor)

	dispatch(t, d, s, "cart-0-coupon")
	r = d.Text(context.Background(), s, "BOGUS")
	assert.Contains(t, r.Text, "not valid")
}

func TestUnexpectedTextGetsFallback(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	r := d.Text(context.Background(), s, "hello there")
	assert.Equal(t, "Something went wrong", r.Text)
}

func TestOrderTypeToggle(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "item-100-addtocart-1")

	r := dispatch(t, d, s, "cart-0-ordertype-collection")
	assert.Equal(t, session.OrderCollection, s.User.OrderType)
	assert.Contains(t, r.Text, "Pick-up")
	// Pick-up pays no delivery fee.
	assert.Contains(t, r.Text, "Total</b> - 50 000 ₫")

	dispatch(t, d, s, "cart-0-ordertype-delivery")
	assert.Equal(t, session.OrderDelivery, s.User.OrderType)
}

func TestCheckoutPlacesOrder(t *testing.T) {
	d, store, rec := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "location-1")
	dispatch(t, d, s, "item-100-addtocart-2")
	s.UpdatePhone("+84000000000")

	r := dispatch(t, d, s, "cart-0-checkout")
	assert.Contains(t, r.Text, "Subtotal")
	_, ok := findButton(r, "cart-0-checkout-confirm")
	require.True(t, ok)

	r = dispatch(t, d, s, "cart-0-checkout-confirm")
	assert.Contains(t, r.Text, "Order placed")

	require.Len(t, rec.orders, 1)
	order := rec.orders[0]
	assert.Equal(t, int64(1), order.LocationID)
	assert.Equal(t, 2, order.TotalItems)
	assert.Equal(t, "delivery", order.OrderType)
	assert.Equal(t, "+84000000000", order.Telephone)
	assert.Equal(t, "orders@pho.example", order.Email)
	assert.Equal(t, 120000.0, order.OrderTotal)
	require.Len(t, order.Menus, 1)
	assert.Equal(t, int64(100), order.Menus[0].MenuID)
	assert.Equal(t, 2, order.Menus[0].Quantity)

	// The cart and coupon are consumed by a successful order.
	assert.Equal(t, 0, s.CartCount())
	assert.Nil(t, s.User.Coupon)
}

func TestCheckoutRequestsMissingContactDetails(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "item-100-addtocart-1")

	r := dispatch(t, d, s, "cart-0-checkout")
	_, ok := findButton(r, "cart-0-phone")
	assert.True(t, ok, "missing phone should be requestable")
	_, ok = findButton(r, "cart-0-address")
	assert.True(t, ok, "delivery without address should be requestable")

	dispatch(t, d, s, "cart-0-phone")
	assert.Equal(t, session.RequestPhone, s.Nav.TextRequestedFor)
	r = d.Text(context.Background(), s, " +84 111 222 333 ")
	assert.Contains(t, r.Text, "Phone number saved")
	assert.Equal(t, "+84 111 222 333", s.User.Phone)

	dispatch(t, d, s, "cart-0-address")
	d.Text(context.Background(), s, "12 Hang Bac, Hanoi")
	assert.Equal(t, "12 Hang Bac, Hanoi", s.User.Address)

	// Both supplied: the buttons disappear.
	r = dispatch(t, d, s, "cart-0-checkout")
	_, ok = findButton(r, "cart-0-phone")
	assert.False(t, ok)
	_, ok = findButton(r, "cart-0-address")
	assert.False(t, ok)
}

func TestCheckoutRejectedOrderKeepsCart(t *testing.T) {
	d, store, rec := testDispatcher(t)
	rec.reject = true
	s := store.Get(1)
	dispatch(t, d, s, "item-100-addtocart-1")

	r := dispatch(t, d, s, "cart-0-checkout-confirm")
	assert.Contains(t, r.Text, "could not place your order")
	assert.Equal(t, 1, s.CartCount())
}

func TestCheckoutEmptyCart(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)

	r := dispatch(t, d, s, "cart-0-checkout")
	assert.Contains(t, r.Text, "cart is empty")
}

func TestAdminReload(t *testing.T) {
	d, store, _ := testDispatcher(t)

	// Non-admins get the fallback text and no reload happens.
	r := dispatch(t, d, store.Get(1), "admin-reload")
	assert.Equal(t, "Something went wrong", r.Text)

	r = dispatch(t, d, store.Get(99), "admin-reload")
	assert.Contains(t, r.Text, "data is reloaded")
}

func TestResetLocationAsksBeforeClearingCart(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "item-100-addtocart-1")

	r := dispatch(t, d, s, "resetlocation-request")
	assert.Contains(t, r.Text, "cart will be cleared")
	assert.Equal(t, 1, s.CartCount())

	r = dispatch(t, d, s, "resetlocation-confirm")
	assert.Equal(t, 0, s.CartCount())
	assert.Equal(t, int64(0), s.Nav.CurrentItem)
	_, ok := findButton(r, "location-1")
	assert.True(t, ok)
}

func TestDispatchRepairsLostLocation(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	require.Equal(t, int64(0), s.Nav.CurrentLocation)

	dispatch(t, d, s, "category-10")
	assert.Equal(t, int64(1), s.Nav.CurrentLocation)
}

func TestNavigationShowsCartBadge(t *testing.T) {
	d, store, _ := testDispatcher(t)
	s := store.Get(1)
	dispatch(t, d, s, "item-100-addtocart-3")

	r := dispatch(t, d, s, "category-10")
	b, ok := findButton(r, "cart")
	require.True(t, ok)
	assert.Equal(t, "🛒 Cart (3)", b.Label)
}
