// Package canteen covers the menu, the transient cart and the order lifecycle.
package canteen

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"campusportal/internal/profile"
)

// Item is a menu entry.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Cents  `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url,omitempty"`
	Available   bool   `json:"available"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Active reports whether the order still awaits pickup.
func (s OrderStatus) Active() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusReady
}

// OrderLine is a snapshot of one cart line at order time.
type OrderLine struct {
	ItemID   string `json:"id"`
	Name     string `json:"name"`
	Price    Cents  `json:"price"`
	Quantity int    `json:"quantity"`
}

// OrderLines is stored as a JSONB array.
type OrderLines []OrderLine

// Value encodes the lines as JSON.
func (l OrderLines) Value() (driver.Value, error) {
	if l == nil {
		l = OrderLines{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

// Scan decodes a JSONB column.
func (l *OrderLines) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into OrderLines", src)
	}
	return errors.WithStack(json.Unmarshal(b, l))
}

// Order is a placed canteen order. PickupTime is set when it first becomes ready.
type Order struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Items      OrderLines       `json:"items"`
	Total      Cents            `json:"total_amount"`
	Status     OrderStatus      `json:"status"`
	OrderDate  time.Time        `json:"order_date"`
	PickupTime *time.Time       `json:"pickup_time,omitempty"`
	Customer   *profile.Summary `json:"user,omitempty"`
}

// Store persists menu items and orders.
type Store interface {
	// ListItems returns items ordered by category then name.
	ListItems(ctx context.Context, onlyAvailable bool) ([]Item, error)
	GetItems(ctx context.Context, ids []string) ([]Item, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	SetAvailability(ctx context.Context, id string, available bool) (Item, error)

	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	// UpdateOrderStatus moves an order from one status to another. pickup is only
	// written when the stored pickup time is empty. A stale from returns a conflict.
	UpdateOrderStatus(ctx context.Context, id string, from, to OrderStatus, pickup *time.Time) (Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// ListOrders returns the latest orders of everyone with customer details.
	ListOrders(ctx context.Context, limit int) ([]Order, error)
}
