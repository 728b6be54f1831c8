package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// OrderRequest is the order document posted to the API at checkout.
// Field names follow TastyIgniter's orders resource.
type OrderRequest struct {
	LocationID int64   `json:"location_id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Telephone  string  `json:"telephone,omitempty"`
	Comment    string  `json:"comment,omitempty"`
	OrderType  string  `json:"order_type"` // delivery | collection
	TotalItems int     `json:"total_items"`
	OrderTotal float64 `json:"order_total"`
	AsAP       bool    `json:"order_time_is_asap"`
	Payment    string  `json:"payment"` // cod | card

	Totals []OrderTotal    `json:"order_totals"`
	Menus  []OrderMenuLine `json:"order_menus"`
}

// OrderTotal is one row of the order's totals breakdown.
type OrderTotal struct {
	Code     string  `json:"code"` // subtotal | delivery | coupon | total
	Title    string  `json:"title"`
	Value    float64 `json:"value"`
	Priority int     `json:"priority"`
}

// OrderMenuLine is one ordered item with its chosen option values.
type OrderMenuLine struct {
	MenuID   int64   `json:"menu_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
	Comment  string  `json:"comment,omitempty"`

	OptionValueIDs []int64 `json:"menu_option_value_ids,omitempty"`
}

// CreateOrder submits an order. Unlike catalog reads this is a single
// attempt: a failed order placement is surfaced to the user, not fatal.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		c.log.Warn("order rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return fmt.Errorf("create order: status %d", resp.StatusCode)
	}
	c.log.Info("order placed", zap.Int64("location", order.LocationID), zap.Float64("total", order.OrderTotal))
	return nil
}
