// Package cart models the shopper's cart the way the browser keeps it
// (an ordered list of line items keyed by product id) and derives the
// checkout totals from it.
package cart

import (
	"encoding/json"
	"fmt"
	"io"
)

// Item mirrors one entry of the persisted cart. Name, Image, Price and
// Stock are a snapshot taken when the item was added.
type Item struct {
	Product string  `json:"product"`
	Name    string  `json:"name"`
	Image   string  `json:"image"`
	Price   float64 `json:"price"`
	Stock   int     `json:"stock"`
	Qty     int     `json:"qty"`
}

type Cart struct {
	Items []Item
}

// Add puts it into the cart. An existing entry for the same product is
// replaced in place, quantity included.
func (c *Cart) Add(it Item) error {
	if it.Product == "" {
		return fmt.Errorf("cart item has no product")
	}
	if it.Qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", it.Qty)
	}

	for i := range c.Items {
		if c.Items[i].Product == it.Product {
			c.Items[i] = it
			return nil
		}
	}
	c.Items = append(c.Items, it)
	return nil
}

func (c *Cart) Remove(productID string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.Product != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func (c *Cart) Len() int {
	return len(c.Items)
}

func (c *Cart) ItemsPrice() float64 {
	return ItemsPrice(c.Items)
}

// Quote prices the cart with an optional coupon percentage (0 for none).
func (c *Cart) Quote(discountPercent int) Totals {
	return Quote(c.ItemsPrice(), discountPercent)
}

// Load decodes a cart stored as a JSON array of items.
func Load(r io.Reader) (*Cart, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	c := &Cart{}
	for _, it := range items {
		if err := c.Add(it); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cart) Save(w io.Writer) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	return json.NewEncoder(w).Encode(items)
}
