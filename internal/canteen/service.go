package canteen

import (
	"context"
	"io"
	"strings"
	"time"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

const (
	ownOrderLimit = 10
	allOrderLimit = 50
)

// ImageStore uploads menu item pictures and returns their public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, r io.Reader, filename string) (string, error)
}

// Service applies the menu and order rules.
type Service struct {
	store  Store
	images ImageStore
	Now    func() time.Time
}

// NewService creates a service. images may be nil when uploads are not configured.
func NewService(store Store, images ImageStore) *Service {
	return &Service{store: store, images: images, Now: time.Now}
}

// Category groups the menu items of one category.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// GroupByCategory keeps the input order, which is by category then name.
func GroupByCategory(items []Item) []Category {
	var out []Category
	for _, it := range items {
		if n := len(out); n > 0 && out[n-1].Name == it.Category {
			out[n-1].Items = append(out[n-1].Items, it)
			continue
		}
		out = append(out, Category{Name: it.Category, Items: []Item{it}})
	}
	return out
}

// Menu returns the available items.
func (s *Service) Menu(ctx context.Context) ([]Item, error) {
	return s.store.ListItems(ctx, true)
}

// Quote rebuilds the client's cart against current prices without placing it.
func (s *Service) Quote(ctx context.Context, lines []LineInput) (Cart, error) {
	if len(lines) == 0 {
		return Cart{}, apperr.NewValidationError("Your cart is empty")
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	catalog, err := s.store.GetItems(ctx, ids)
	if err != nil {
		return Cart{}, err
	}
	return BuildCart(catalog, lines)
}

// PlaceOrder snapshots the cart and stores a pending order. The total comes from
// the snapshot, so later price changes never affect it.
func (s *Service) PlaceOrder(ctx context.Context, v profile.Viewer, lines []LineInput) (Order, error) {
	cart, err := s.Quote(ctx, lines)
	if err != nil {
		return Order{}, err
	}
	snapshot := cart.Snapshot()
	var total Cents
	for _, l := range snapshot {
		total += l.Price.Times(l.Quantity)
	}
	return s.store.CreateOrder(ctx, Order{
		UserID:    v.ID,
		Items:     snapshot,
		Total:     total,
		Status:    StatusPending,
		OrderDate: s.Now().UTC(),
	})
}

// StatusResult is the outcome of UpdateStatus.
type StatusResult struct {
	Order   Order
	Changed bool
}

// UpdateStatus moves an order along its lifecycle. Setting the current status
// again is a no-op; entering ready stamps the pickup time once.
func (s *Service) UpdateStatus(ctx context.Context, v profile.Viewer, id string, to OrderStatus) (StatusResult, error) {
	if !v.CanManageCanteen() {
		return StatusResult{}, apperr.ErrForbidden
	}
	if !ValidStatus(to) {
		return StatusResult{}, apperr.NewValidationError("unknown order status",
			apperr.FieldError{Field: "status", Error: "unknown status " + string(to)})
	}
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return StatusResult{}, err
	}
	if o == nil {
		return StatusResult{}, apperr.NotFound("order not found")
	}
	if o.Status == to {
		return StatusResult{Order: *o}, nil
	}
	if !CanTransition(o.Status, to) {
		return StatusResult{}, apperr.Conflict("Cannot change an order from " + string(o.Status) + " to " + string(to))
	}
	var pickup *time.Time
	if to == StatusReady {
		now := s.Now().UTC()
		pickup = &now
	}
	updated, err := s.store.UpdateOrderStatus(ctx, id, o.Status, to, pickup)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Order: updated, Changed: true}, nil
}

// ItemInput carries a new menu item.
type ItemInput struct {
	Name        string `form:"name" json:"name" binding:"required"`
	Description string `form:"description" json:"description"`
	Price       string `form:"price" json:"price" binding:"required"`
	Category    string `form:"category" json:"category" binding:"required"`
	Available   *bool  `form:"available" json:"available"`
}

// Image is an optional upload attached to a new item.
type Image struct {
	Body     io.Reader
	Filename string
}

// CreateItem adds a menu item, uploading its image first when one is given.
func (s *Service) CreateItem(ctx context.Context, v profile.Viewer, in ItemInput, img *Image) (Item, error) {
	if !v.CanManageCanteen() {
		return Item{}, apperr.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" {
		return Item{}, apperr.NewValidationError("Name and category are required")
	}
	price, err := ParseCents(in.Price)
	if err != nil || price < 0 || price > MaxAmount {
		return Item{}, apperr.NewValidationError("invalid price",
			apperr.FieldError{Field: "price", Error: "must be a non-negative amount with at most two decimals"})
	}
	it := Item{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       price,
		Category:    category,
		Available:   in.Available == nil || *in.Available,
	}
	if img != nil {
		if s.images == nil {
			return Item{}, apperr.NewValidationError("image uploads are not configured")
		}
		url, err := s.images.UploadImage(ctx, img.Body, img.Filename)
		if err != nil {
			return Item{}, err
		}
		it.ImageURL = url
	}
	return s.store.CreateItem(ctx, it)
}

// SetAvailability shows or hides an item on the menu.
func (s *Service) SetAvailability(ctx context.Context, v profile.Viewer, id string, available bool) (Item, error) {
	if !v.CanManageCanteen() {
		return Item{}, apperr.ErrForbidden
	}
	return s.store.SetAvailability(ctx, id, available)
}

// OwnOrders returns the viewer's latest orders.
func (s *Service) OwnOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.store.ListOrdersByUser(ctx, userID, ownOrderLimit)
}

// AllOrders returns everyone's latest orders for the admin queue.
func (s *Service) AllOrders(ctx context.Context, v profile.Viewer) ([]Order, error) {
	if !v.CanManageCanteen() {
		return nil, apperr.ErrForbidden
	}
	return s.store.ListOrders(ctx, allOrderLimit)
}

// View is the canteen page.
type View struct {
	Menu         []Category          `json:"menu"`
	Orders       []Order             `json:"orders"`
	ActiveOrders int                 `json:"active_orders"`
	AllOrders    []Order             `json:"all_orders,omitempty"`
	StatusCounts map[OrderStatus]int `json:"status_counts,omitempty"`
}

// BuildView assembles the page. all is nil for non-admins.
func BuildView(menu []Item, own, all []Order) View {
	view := View{Menu: GroupByCategory(menu), Orders: own}
	if view.Menu == nil {
		view.Menu = []Category{}
	}
	if view.Orders == nil {
		view.Orders = []Order{}
	}
	for _, o := range own {
		if o.Status.Active() {
			view.ActiveOrders++
		}
	}
	if all != nil {
		view.AllOrders = all
		view.StatusCounts = make(map[OrderStatus]int)
		for _, o := range all {
			view.StatusCounts[o.Status]++
		}
	}
	return view
}
