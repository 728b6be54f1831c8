package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fixtureServer serves a minimal TastyIgniter catalog: two locations
// (only #1 allow-listed in tests), one category, one menu item with a
// radio option group and a multi-select group, one coupon and VND.
func fixtureServer(t *testing.T, requests *int) *httptest.Server {
	t.Helper()

	bodies := map[string]string{
		"/locations": `{"data":[
			{"type":"locations","id":"1","attributes":{"location_name":"Pho Corner","location_address_1":"1 Old Quarter"}},
			{"type":"locations","id":"2","attributes":{"location_name":"Closed Twin"}}
		]}`,
		"/locations/1": `{"data":{"type":"locations","id":"1","attributes":{"location_name":"Pho Corner","location_address_1":"1 Old Quarter"}},"included":[
			{"type":"working_hours","id":"11","attributes":{"weekday":1,"type":"delivery","opening_time":"09:00","closing_time":"21:00","status":true}}
		]}`,
		"/categories": `{"data":[
			{"type":"categories","id":"12","attributes":{"name":"Specials"}},
			{"type":"categories","id":"10","attributes":{"name":"Soups"}}
		]}`,
		"/categories/12": `{"data":{"type":"categories","id":"12","attributes":{"name":"Specials"},
			"relationships":{"locations":{"data":[{"type":"locations","id":"1"}]}}}}`,
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
			{"type":"media","id":"55","attributes":{"path":"https://img.example/pho.jpg"}},
			{"type":"menu_options","id":"20","attributes":{"option_name":"Size","display_type":"radio","required":true,"menu_option_values":[
				{"menu_option_value_id":7,"name":"Regular","price":0,"is_default":true},
				{"menu_option_value_id":8,"name":"Large","price":10000}
			]}},
			{"type":"menu_options","id":"21","attributes":{"option_name":"Toppings","display_type":"checkbox","menu_option_values":[
				{"menu_option_value_id":9,"name":"Extra beef","price":15000}
			]}}
		]}`,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			*requests++
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

// flaky429 wraps a handler, answering the first n requests with 429.
func flaky429(n int, next http.Handler) http.Handler {
	served := 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
		if served <= n {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func testClient(srv *httptest.Server, opts Options) *Client {
	opts.BaseURL = srv.URL
	if opts.Token == "" {
		opts.Token = "test-token"
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	opts.RetryPause = time.Millisecond
	return New(opts, zap.NewNop())
}

func TestLoad(t *testing.T) {
	srv := fixtureServer(t, nil)
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{1}})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	active := c.ActiveLocations()
	if len(active) != 1 || active[0].ID != 1 {
		t.Fatalf("active locations = %+v, want just #1", active)
	}
	if active[0].Name != "Pho Corner" {
		t.Errorf("location name = %q", active[0].Name)
	}
	if len(active[0].Hours) != 1 {
		t.Errorf("working hours = %+v, want 1 row", active[0].Hours)
	}
	if c.IsActive(2) {
		t.Error("location 2 is not allow-listed but reported active")
	}

	// Sections follow the API's category list order (Specials is listed
	// before Soups despite the higher ID).
	sections := c.Menu(1)
	if len(sections) != 2 {
		t.Fatalf("menu sections = %d, want 2", len(sections))
	}
	if sections[0].Category.Name != "Specials" || sections[1].Category.Name != "Soups" {
		t.Errorf("section order = %q, %q, want API list order", sections[0].Category.Name, sections[1].Category.Name)
	}
	if len(sections[0].ItemIDs) != 0 {
		t.Errorf("Specials item ids = %v, want empty", sections[0].ItemIDs)
	}
	if len(sections[1].ItemIDs) != 1 || sections[1].ItemIDs[0] != 100 {
		t.Fatalf("Soups item ids = %v", sections[1].ItemIDs)
	}

	item, ok := c.Item(100)
	if !ok {
		t.Fatal("item 100 not loaded")
	}
	if item.Price != 50000 || item.Currency != "VND" {
		t.Errorf("item price = %v %s", item.Price, item.Currency)
	}
	if item.ImageURL != "https://img.example/pho.jpg" {
		t.Errorf("image = %q", item.ImageURL)
	}

	if _, ok := c.Coupon("WELCOME"); !ok {
		t.Error("coupon WELCOME not loaded")
	}
	if _, ok := c.Coupon("NOPE"); ok {
		t.Error("unknown coupon reported as found")
	}
}

func TestItemOptionsRadioOnly(t *testing.T) {
	srv := fixtureServer(t, nil)
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{1}})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// The item carries a radio group and a checkbox group; only the
	// radio one is offered.
	groups := c.ItemOptions(100)
	if len(groups) != 1 {
		t.Fatalf("option groups = %d, want 1", len(groups))
	}
	if groups[0].Kind != GroupSingleSelect || groups[0].Name != "Size" {
		t.Errorf("group = %+v", groups[0])
	}
	if len(groups[0].Values) != 2 {
		t.Errorf("values = %+v", groups[0].Values)
	}
}

func TestLoadFetchesOptionReferenceList(t *testing.T) {
	inner := fixtureServer(t, nil)
	defer inner.Close()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		inner.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{1}})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	fetched := false
	for _, p := range paths {
		if p == "/menu_item_options" {
			fetched = true
		}
	}
	if !fetched {
		t.Errorf("Load never fetched menu_item_options, requests were %v", paths)
	}

	group, ok := c.OptionList(20)
	if !ok {
		t.Fatal("option group 20 missing from the reference list")
	}
	if group.Name != "Size" || group.Kind != GroupSingleSelect || len(group.Values) != 2 {
		t.Errorf("reference group = %+v", group)
	}
	if _, ok := c.OptionList(999); ok {
		t.Error("unknown option group reported as found")
	}
}

func TestLoadNoRemoteLocations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{1}})
	err := c.Load(context.Background())
	var startup *StartupError
	if !errors.As(err, &startup) {
		t.Fatalf("Load err = %v, want StartupError", err)
	}
}

func TestLoadNoAllowListIntersection(t *testing.T) {
	srv := fixtureServer(t, nil)
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{9}})
	err := c.Load(context.Background())
	var startup *StartupError
	if !errors.As(err, &startup) {
		t.Fatalf("Load err = %v, want StartupError", err)
	}
}

func TestGetRetriesThenFails(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{1}, MaxAttempts: 3})
	err := c.Load(context.Background())

	var startup *StartupError
	if !errors.As(err, &startup) {
		t.Fatalf("Load err = %v, want StartupError", err)
	}
	if startup.URI == "" {
		t.Error("StartupError should carry the failing URI")
	}
	if requests != 3 {
		t.Errorf("requests = %d, want 3 (one per attempt)", requests)
	}
	if len(startup.Guidance()) == 0 {
		t.Error("no operator guidance attached")
	}
}

func TestGetRecoversAfter429(t *testing.T) {
	inner := fixtureServer(t, nil)
	defer inner.Close()
	srv := httptest.NewServer(flaky429(2, inner.Config.Handler))
	defer srv.Close()

	c := testClient(srv, Options{LocationIDs: []int64{1}, MaxAttempts: 5})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load after transient 429s: %v", err)
	}
	if len(c.ActiveLocations()) != 1 {
		t.Error("catalog incomplete after recovery")
	}
}

func TestLoadServesFromCache(t *testing.T) {
	var requests int
	srv := fixtureServer(t, &requests)
	defer srv.Close()

	cache, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	c := testClient(srv, Options{LocationIDs: []int64{1}, Cache: cache})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	warm := requests
	if warm == 0 {
		t.Fatal("first load made no requests")
	}

	// A second client over the same cache directory loads without
	// touching the network at all.
	c2 := testClient(srv, Options{LocationIDs: []int64{1}, Cache: cache})
	if err := c2.Load(context.Background()); err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if requests != warm {
		t.Errorf("cached load hit the network: %d -> %d requests", warm, requests)
	}

	// Reload clears the cache first, so it fetches everything again.
	if err := c2.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if requests == warm {
		t.Error("Reload served from cache instead of refetching")
	}
}
