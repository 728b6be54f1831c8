package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StartupError reports an unrecoverable catalog failure: the API is
// unreachable past the retry budget, or the loaded data cannot satisfy
// the bootstrap preconditions. The process entry point decides whether
// to terminate; nothing below it calls os.Exit.
type StartupError struct {
	URI string
	Err error
}

func (e *StartupError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("catalog: %s: %v", e.URI, e.Err)
	}
	return fmt.Sprintf("catalog: %v", e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Guidance returns operator hints logged before the process exits.
func (e *StartupError) Guidance() []string {
	return []string{
		"1. Check ti-url and ti-token in your configuration file",
		"2. Check that the TastyIgniter API is running",
		"3. Check that the TastyIgniter API is reachable from this machine",
		"4. Check that the requested endpoint is enabled for this token",
	}
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Token       string
	LocationIDs []int64 // allow-list; the active set is the intersection with the remote catalog
	MaxAttempts int
	RetryPause  time.Duration // pause after a 429 before the next attempt
	Cache       RequestCache
	HTTPClient  *http.Client
}

// Client is a read-mostly local view of the TastyIgniter catalog. All
// loading happens from the single dispatcher goroutine, so the in-memory
// indexes need no locking.
type Client struct {
	opts Options
	log  *zap.Logger
	sf   singleflight.Group

	requestCount int

	active     []Location
	locations  map[int64]Location
	categories map[int64]Category
	// categoryOrder preserves the API's category list order, which is
	// also the menu section order
	categoryOrder []int64
	items         map[int64]*MenuItem
	// menus: location -> category -> ordered item IDs
	menus map[int64]map[int64][]int64
	// menuOrder keeps category ordering per location, since map
	// iteration order is not stable
	menuOrder map[int64][]int64
	// optionLists is the menu-option reference list, keyed by group ID
	optionLists map[int64]OptionGroup
	coupons     []Coupon
	currencies  []Currency
}

// New creates a catalog client. Call Load before using any accessor.
func New(opts Options, log *zap.Logger) *Client {
	if opts.Cache == nil {
		opts.Cache = NewNoopCache()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryPause <= 0 {
		opts.RetryPause = time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{opts: opts, log: log}
}

// Load fetches the full catalog: active locations, categories, menu
// options, currencies, coupons, then per-location details and menus.
// A zero remote location set or an empty allow-list intersection is a
// bootstrap failure.
func (c *Client) Load(ctx context.Context) error {
	c.active = nil
	c.locations = make(map[int64]Location)
	c.categories = make(map[int64]Category)
	c.categoryOrder = nil
	c.items = make(map[int64]*MenuItem)
	c.menus = make(map[int64]map[int64][]int64)
	c.menuOrder = make(map[int64][]int64)
	c.optionLists = make(map[int64]OptionGroup)
	c.coupons = nil
	c.currencies = nil

	c.log.Info("connecting to TastyIgniter API", zap.String("url", c.opts.BaseURL))

	remote, err := c.list(ctx, "locations?location_status=true")
	if err != nil {
		return err
	}
	if len(remote) == 0 {
		return &StartupError{Err: fmt.Errorf("no locations exist on the TastyIgniter side; create one and check your configuration")}
	}

	allowed := make(map[int64]bool, len(c.opts.LocationIDs))
	for _, id := range c.opts.LocationIDs {
		allowed[id] = true
	}
	for _, r := range remote {
		var attrs locationAttrs
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return fmt.Errorf("decode location %s: %w", r.ID, err)
		}
		loc := Location{ID: r.id(), Name: attrs.Name, Address: attrs.Address, Description: attrs.Description}
		if allowed[loc.ID] {
			c.log.Info("location active", zap.Int64("id", loc.ID), zap.String("name", loc.Name))
			c.active = append(c.active, loc)
		} else {
			c.log.Info("location inactive", zap.Int64("id", loc.ID), zap.String("name", loc.Name))
		}
	}
	if len(c.active) == 0 {
		return &StartupError{Err: fmt.Errorf("location-ids in the configuration match no location on the TastyIgniter side")}
	}

	if err := c.loadCategories(ctx); err != nil {
		return err
	}
	if err := c.loadOptionLists(ctx); err != nil {
		return err
	}
	if err := c.loadCurrencies(ctx); err != nil {
		return err
	}
	if err := c.loadCoupons(ctx); err != nil {
		return err
	}

	c.log.Info("loading menus for active locations", zap.Int("locations", len(c.active)))
	for i, loc := range c.active {
		detail, err := c.getLocationDetail(ctx, loc.ID)
		if err != nil {
			return err
		}
		c.active[i] = detail
		c.locations[loc.ID] = detail

		menu, order, err := c.loadMenu(ctx, loc.ID)
		if err != nil {
			return err
		}
		c.menus[loc.ID] = menu
		c.menuOrder[loc.ID] = order
	}

	c.log.Info("catalog loaded",
		zap.Int("categories", len(c.categories)),
		zap.Int("items", len(c.items)),
		zap.Int("coupons", len(c.coupons)),
		zap.Int("requests", c.requestCount))
	return nil
}

// Reload drops the request cache and loads everything again. Used for
// the admin-triggered refresh; the process keeps running.
func (c *Client) Reload(ctx context.Context) error {
	if err := c.ClearCache(); err != nil {
		return err
	}
	return c.Load(ctx)
}

// ClearCache discards cached request bodies.
func (c *Client) ClearCache() error {
	return c.opts.Cache.Clear()
}

func (c *Client) loadCategories(ctx context.Context) error {
	list, err := c.list(ctx, "categories?include=locations&pageLimit=1000")
	if err != nil {
		return err
	}
	for _, r := range list {
		id := r.id()
		detail, err := c.getData(ctx, fmt.Sprintf("categories/%d?include=menus,locations", id))
		if err != nil {
			return err
		}
		var attrs categoryAttrs
		if err := json.Unmarshal(detail.Attributes, &attrs); err != nil {
			return fmt.Errorf("decode category %d: %w", id, err)
		}
		c.categories[id] = Category{
			ID:          id,
			Name:        attrs.Name,
			Description: attrs.Description,
			LocationIDs: detail.related("locations", "locations"),
		}
		c.categoryOrder = append(c.categoryOrder, id)
	}
	return nil
}

// loadOptionLists fetches the menu-option reference list. Items carry
// their own option groups via includes; this is the canonical list the
// per-item groups are drawn from.
func (c *Client) loadOptionLists(ctx context.Context) error {
	list, err := c.list(ctx, "menu_item_options?pageLimit=1000")
	if err != nil {
		return err
	}
	for _, r := range list {
		var attrs menuOptionAttrs
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			continue
		}
		c.optionLists[r.id()] = optionGroupFromAttrs(r.id(), attrs)
	}
	return nil
}

func (c *Client) loadCurrencies(ctx context.Context) error {
	list, err := c.list(ctx, "currencies?enabled=true&pageLimit=1000")
	if err != nil {
		return err
	}
	for _, r := range list {
		var attrs currencyAttrs
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			continue
		}
		c.currencies = append(c.currencies, Currency{ID: r.id(), Code: attrs.Code, Symbol: attrs.Symbol})
	}
	return nil
}

func (c *Client) loadCoupons(ctx context.Context) error {
	list, err := c.list(ctx, "coupons?include=menus&enabled=true&pageLimit=1000")
	if err != nil {
		return err
	}
	for _, r := range list {
		var attrs couponAttrs
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			continue
		}
		c.coupons = append(c.coupons, Coupon{
			ID:       r.id(),
			Code:     attrs.Code,
			Type:     DiscountType(attrs.Type),
			Discount: attrs.Discount,
		})
	}
	return nil
}

func (c *Client) getLocationDetail(ctx context.Context, id int64) (Location, error) {
	body, err := c.get(ctx, fmt.Sprintf("locations/%d?include=working_hours,media", id))
	if err != nil {
		return Location{}, err
	}
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Location{}, fmt.Errorf("decode location %d: %w", id, err)
	}
	var r resource
	if err := json.Unmarshal(doc.Data, &r); err != nil {
		return Location{}, fmt.Errorf("decode location %d: %w", id, err)
	}
	var attrs locationAttrs
	if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
		return Location{}, fmt.Errorf("decode location %d: %w", id, err)
	}
	loc := Location{ID: id, Name: attrs.Name, Address: attrs.Address, Description: attrs.Description}
	for _, inc := range doc.Included {
		if inc.Type != "working_hours" {
			continue
		}
		var wh workingHourAttrs
		if err := json.Unmarshal(inc.Attributes, &wh); err != nil {
			continue
		}
		loc.Hours = append(loc.Hours, WorkingHour{
			Weekday: wh.Weekday,
			Type:    wh.Type,
			Open:    wh.Open,
			Close:   wh.Close,
			Status:  wh.Status,
		})
	}
	return loc, nil
}

// LoadMenu returns the category -> ordered item IDs mapping for one
// location, fetching item details lazily (fetch-once, cache-forever).
func (c *Client) LoadMenu(ctx context.Context, locationID int64) (map[int64][]int64, error) {
	menu, _, err := c.loadMenu(ctx, locationID)
	return menu, err
}

func (c *Client) loadMenu(ctx context.Context, locationID int64) (map[int64][]int64, []int64, error) {
	list, err := c.list(ctx, fmt.Sprintf("menus?location=%d&include=media", locationID))
	if err != nil {
		return nil, nil, err
	}

	// Categories keep the API's list order, which is the curated menu
	// order, not ascending IDs.
	menu := make(map[int64][]int64)
	var order []int64
	for _, categoryID := range c.categoryOrder {
		if !containsID(c.categories[categoryID].LocationIDs, locationID) {
			continue
		}
		menu[categoryID] = []int64{}
		order = append(order, categoryID)
		for _, r := range list {
			itemID := r.id()
			item, err := c.fetchItem(ctx, itemID)
			if err != nil {
				return nil, nil, err
			}
			if containsID(item.CategoryIDs, categoryID) {
				menu[categoryID] = append(menu[categoryID], itemID)
			}
		}
	}
	return menu, order, nil
}

// fetchItem loads one menu item's detail document, once. Concurrent
// callers for the same item share a single request.
func (c *Client) fetchItem(ctx context.Context, itemID int64) (*MenuItem, error) {
	if item, ok := c.items[itemID]; ok {
		return item, nil
	}
	v, err, _ := c.sf.Do(fmt.Sprintf("menus/%d", itemID), func() (interface{}, error) {
		body, err := c.get(ctx, fmt.Sprintf("menus/%d?include=media,categories,menu_options", itemID))
		if err != nil {
			return nil, err
		}
		var doc document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode menu item %d: %w", itemID, err)
		}
		var r resource
		if err := json.Unmarshal(doc.Data, &r); err != nil {
			return nil, fmt.Errorf("decode menu item %d: %w", itemID, err)
		}
		var attrs menuAttrs
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("decode menu item %d: %w", itemID, err)
		}
		item := &MenuItem{
			ID:          itemID,
			Name:        attrs.Name,
			Description: attrs.Description,
			Price:       attrs.Price,
			Currency:    attrs.Currency,
			CategoryIDs: r.related("categories", "categories"),
		}
		for _, inc := range doc.Included {
			switch inc.Type {
			case "media":
				var m mediaAttrs
				if err := json.Unmarshal(inc.Attributes, &m); err == nil && item.ImageURL == "" {
					item.ImageURL = m.Path
				}
			case "menu_options":
				if group, ok := parseOptionGroup(inc); ok {
					item.Options = append(item.Options, group)
				}
			}
		}
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	item := v.(*MenuItem)
	c.items[itemID] = item
	return item, nil
}

// list fetches an endpoint whose data element is a resource array.
func (c *Client) list(ctx context.Context, uri string) ([]resource, error) {
	body, err := c.get(ctx, uri)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	var list []resource
	if err := json.Unmarshal(doc.Data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return list, nil
}

// getData fetches an endpoint whose data element is a single resource.
func (c *Client) getData(ctx context.Context, uri string) (resource, error) {
	body, err := c.get(ctx, uri)
	if err != nil {
		return resource{}, err
	}
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return resource{}, fmt.Errorf("decode %s: %w", uri, err)
	}
	var r resource
	if err := json.Unmarshal(doc.Data, &r); err != nil {
		return resource{}, fmt.Errorf("decode %s: %w", uri, err)
	}
	return r, nil
}

// get performs one authenticated GET with the cache/retry protocol:
// cache hit returns the stored body verbatim; otherwise the request is
// retried in a bounded loop and the body is cached before returning.
func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimPrefix(uri, "/")

	if body, ok := c.opts.Cache.Get(uri); ok {
		return body, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		c.requestCount++
		c.log.Debug("api request", zap.String("uri", uri), zap.Int("attempt", attempt))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/"+uri, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)

		resp, err := c.opts.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn("api request failed", zap.String("uri", uri), zap.Error(err))
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK && readErr == nil {
			if err := c.opts.Cache.Put(uri, body); err != nil {
				c.log.Warn("cache write failed", zap.String("uri", uri), zap.Error(err))
			}
			return body, nil
		}
		if readErr != nil {
			lastErr = readErr
		} else {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
		}
		c.log.Warn("api error response", zap.String("uri", uri), zap.Int("status", resp.StatusCode))

		// Back off briefly when the provider rate-limits.
		if resp.StatusCode == http.StatusTooManyRequests {
			select {
			case <-time.After(c.opts.RetryPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, &StartupError{URI: uri, Err: fmt.Errorf("%d attempts exhausted: %w", c.opts.MaxAttempts, lastErr)}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
