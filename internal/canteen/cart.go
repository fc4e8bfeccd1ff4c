package canteen

import (
	"fmt"

	"campusportal/internal/apperr"
)

// CartLine is an item and its quantity.
type CartLine struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// Subtotal is price times quantity.
func (l CartLine) Subtotal() Cents { return l.Item.Price.Times(l.Quantity) }

// Cart is the pre-order basket. It lives for one request and is never stored.
type Cart struct {
	lines []CartLine
}

// Add puts one more of it into the cart.
func (c *Cart) Add(it Item) {
	for i := range c.lines {
		if c.lines[i].Item.ID == it.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{Item: it, Quantity: 1})
}

// UpdateQuantity sets the quantity of itemID. Zero or less removes the line.
func (c *Cart) UpdateQuantity(itemID string, qty int) {
	if qty <= 0 {
		c.Remove(itemID)
		return
	}
	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			c.lines[i].Quantity = qty
			return
		}
	}
}

// Remove drops the line for itemID.
func (c *Cart) Remove(itemID string) {
	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count is the total number of units.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (c *Cart) Total() Cents {
	var total Cents
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Empty reports a cart without lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Snapshot freezes the cart lines for an order.
func (c *Cart) Snapshot() OrderLines {
	out := make(OrderLines, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, OrderLine{ItemID: l.Item.ID, Name: l.Item.Name, Price: l.Item.Price, Quantity: l.Quantity})
	}
	return out
}

// MaxQuantity caps the units of one item in a single order.
const MaxQuantity = 99

// LineInput is a cart line posted by the client.
type LineInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=99"`
}

// BuildCart rebuilds a cart from client lines against the current catalog.
// Repeated item ids are merged.
func BuildCart(catalog []Item, lines []LineInput) (Cart, error) {
	var cart Cart
	if len(lines) == 0 {
		return cart, apperr.NewValidationError("Your cart is empty")
	}
	byID := make(map[string]Item, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}
	qty := make(map[string]int, len(lines))
	for i, l := range lines {
		field := fmt.Sprintf("items[%d]", i)
		it, ok := byID[l.ItemID]
		if !ok {
			return Cart{}, apperr.NewValidationError("Item is no longer on the menu",
				apperr.FieldError{Field: field, Error: "unknown item " + l.ItemID})
		}
		if !it.Available {
			return Cart{}, apperr.NewValidationError(it.Name+" is currently unavailable",
				apperr.FieldError{Field: field, Error: "item unavailable"})
		}
		if l.Quantity < 1 {
			return Cart{}, apperr.NewValidationError("Quantity must be at least 1",
				apperr.FieldError{Field: field, Error: "quantity must be at least 1"})
		}
		if l.Quantity > MaxQuantity-qty[it.ID] {
			return Cart{}, apperr.NewValidationError(fmt.Sprintf("At most %d of %s per order", MaxQuantity, it.Name),
				apperr.FieldError{Field: field, Error: fmt.Sprintf("quantity must be at most %d", MaxQuantity)})
		}
		if qty[it.ID] == 0 {
			cart.Add(it)
		}
		qty[it.ID] += l.Quantity
		cart.UpdateQuantity(it.ID, qty[it.ID])
		if cart.Total() > MaxAmount {
			return Cart{}, apperr.NewValidationError("Order total is too large",
				apperr.FieldError{Field: field, Error: "order total exceeds " + MaxAmount.String()})
		}
	}
	return cart, nil
}
