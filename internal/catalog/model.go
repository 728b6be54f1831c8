package catalog

import (
	"encoding/json"
	"strconv"
)

// The TastyIgniter API wraps every resource in a type/id/attributes
// envelope with optional relationships and side-loaded includes. Only the
// fields the bot reads are decoded; everything else passes through.

type document struct {
	Data     json.RawMessage `json:"data"`
	Included []resource      `json:"included"`
}

type resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type relationship struct {
	Data []resourceRef `json:"data"`
}

type resourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (r resource) id() int64 {
	id, _ := strconv.ParseInt(r.ID, 10, 64)
	return id
}

// related returns the IDs of related resources of the given type.
func (r resource) related(name, typ string) []int64 {
	rel, ok := r.Relationships[name]
	if !ok {
		return nil
	}
	var ids []int64
	for _, ref := range rel.Data {
		if ref.Type != typ {
			continue
		}
		if id, err := strconv.ParseInt(ref.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Location is a restaurant the bot can take orders for.
type Location struct {
	ID          int64
	Name        string
	Address     string
	Description string
	Hours       []WorkingHour
}

// WorkingHour is one weekday row of a location's schedule for one
// service type ("opening", "delivery" or "collection").
type WorkingHour struct {
	Weekday int    // 0 = Sunday, matching time.Weekday
	Type    string
	Open    string // "HH:MM"
	Close   string
	Status  bool
}

// Category groups menu items and is attached to one or more locations.
type Category struct {
	ID          int64
	Name        string
	Description string
	LocationIDs []int64
}

// MenuItem is a single orderable dish.
type MenuItem struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Currency    string
	ImageURL    string
	CategoryIDs []int64
	Options     []OptionGroup
}

// GroupKind tags an option group as usable or not. Only single-select
// ("radio") groups are supported; everything else is carried as
// GroupUnsupported and never offered to the user.
type GroupKind int

const (
	GroupUnsupported GroupKind = iota
	GroupSingleSelect
)

// OptionGroup is a set of selectable values attached to a menu item.
type OptionGroup struct {
	ID       int64
	Kind     GroupKind
	Name     string
	Required bool
	Values   []OptionValue
}

// OptionValue is one choice within an option group.
type OptionValue struct {
	ID      int64
	Name    string
	Price   float64 // delta added to the item price
	Default bool
}

// DiscountType distinguishes fixed-amount from percentage coupons.
// The wire values are TastyIgniter's own.
type DiscountType string

const (
	DiscountFixed      DiscountType = "F"
	DiscountPercentage DiscountType = "P"
)

// Coupon is a discount code loaded from the API.
type Coupon struct {
	ID       int64        `json:"id"`
	Code     string       `json:"code"`
	Type     DiscountType `json:"type"`
	Discount float64      `json:"discount"`
}

// Currency is a display currency enabled on the TastyIgniter side.
type Currency struct {
	ID     int64
	Code   string
	Symbol string
}

// Attribute payloads, named after the API's snake_case fields.

type locationAttrs struct {
	Name        string `json:"location_name"`
	Address     string `json:"location_address_1"`
	Description string `json:"description"`
}

type categoryAttrs struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type menuAttrs struct {
	Name        string  `json:"menu_name"`
	Description string  `json:"menu_description"`
	Price       float64 `json:"menu_price"`
	Currency    string  `json:"currency"`
}

type menuOptionAttrs struct {
	Name        string             `json:"option_name"`
	DisplayType string             `json:"display_type"`
	Required    bool               `json:"required"`
	Values      []optionValueAttrs `json:"menu_option_values"`
}

type optionValueAttrs struct {
	ID      int64   `json:"menu_option_value_id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Default bool    `json:"is_default"`
}

type couponAttrs struct {
	Code     string  `json:"code"`
	Type     string  `json:"type"`
	Discount float64 `json:"discount"`
}

type currencyAttrs struct {
	Code   string `json:"currency_code"`
	Symbol string `json:"currency_symbol"`
}

type mediaAttrs struct {
	Path string `json:"path"`
}

type workingHourAttrs struct {
	Weekday int    `json:"weekday"`
	Type    string `json:"type"`
	Open    string `json:"opening_time"`
	Close   string `json:"closing_time"`
	Status  bool   `json:"status"`
}

func parseOptionGroup(r resource) (OptionGroup, bool) {
	if r.Type != "menu_options" {
		return OptionGroup{}, false
	}
	var attrs menuOptionAttrs
	if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
		return OptionGroup{}, false
	}
	return optionGroupFromAttrs(r.id(), attrs), true
}

func optionGroupFromAttrs(id int64, attrs menuOptionAttrs) OptionGroup {
	group := OptionGroup{
		ID:       id,
		Name:     attrs.Name,
		Required: attrs.Required,
	}
	if attrs.DisplayType == "radio" {
		group.Kind = GroupSingleSelect
	}
	for _, v := range attrs.Values {
		group.Values = append(group.Values, OptionValue{
			ID:      v.ID,
			Name:    v.Name,
			Price:   v.Price,
			Default: v.Default,
		})
	}
	return group
}
