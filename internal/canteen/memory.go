package canteen

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Memory is an in-process canteen store for dev mode and tests.
type Memory struct {
	mu      sync.RWMutex
	items   map[string]Item
	orders  map[string]Order
	summary func(id string) profile.Summary
}

// NewMemory creates a store seeded with items. summary resolves customers and may be nil.
func NewMemory(summary func(id string) profile.Summary, items ...Item) *Memory {
	m := &Memory{items: make(map[string]Item), orders: make(map[string]Order), summary: summary}
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		m.items[it.ID] = it
	}
	return m
}

func (m *Memory) ListItems(_ context.Context, onlyAvailable bool) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Item
	for _, it := range m.items {
		if onlyAvailable && !it.Available {
			continue
		}
		res = append(res, it)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Category != res[j].Category {
			return res[i].Category < res[j].Category
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (m *Memory) GetItems(_ context.Context, ids []string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Item
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			res = append(res, it)
		}
	}
	return res, nil
}

func (m *Memory) CreateItem(_ context.Context, it Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	m.items[it.ID] = it
	return it, nil
}

func (m *Memory) SetAvailability(_ context.Context, id string, available bool) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, apperr.NotFound("menu item not found")
	}
	it.Available = available
	m.items[id] = it
	return it, nil
}

// SetPrice changes an item's price. Tests use it to check order snapshots.
func (m *Memory) SetPrice(id string, price Cents) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		it.Price = price
		m.items[id] = it
	}
}

func (m *Memory) CreateOrder(_ context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Items = append(OrderLines(nil), o.Items...)
	m.orders[o.ID] = o
	return o, nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id string, from, to OrderStatus, pickup *time.Time) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return Order{}, apperr.Conflict("Order was updated by someone else, reload and try again")
	}
	o.Status = to
	if o.PickupTime == nil && pickup != nil {
		t := *pickup
		o.PickupTime = &t
	}
	m.orders[id] = o
	return o, nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, userID string, limit int) ([]Order, error) {
	return m.listOrders(func(o Order) bool { return o.UserID == userID }, limit, false), nil
}

func (m *Memory) ListOrders(_ context.Context, limit int) ([]Order, error) {
	return m.listOrders(func(Order) bool { return true }, limit, true), nil
}

func (m *Memory) listOrders(keep func(Order) bool, limit int, join bool) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Order
	for _, o := range m.orders {
		if !keep(o) {
			continue
		}
		if join && m.summary != nil {
			sum := m.summary(o.UserID)
			o.Customer = &sum
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].OrderDate.After(res[j].OrderDate) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}
