package canteen

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Repository persists the menu and orders in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const itemColumns = `id, name, description, price, category, image_url, available`

func scanItems(rows *sql.Rows) ([]Item, error) {
	defer rows.Close()
	var res []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Category, &it.ImageURL, &it.Available); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

// ListItems returns menu items by category then name.
func (r *Repository) ListItems(ctx context.Context, onlyAvailable bool) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM canteen_items
		WHERE available OR NOT $1
		ORDER BY category, name
	`, onlyAvailable)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	return scanItems(rows)
}

// GetItems returns the items with the given ids, in any order.
func (r *Repository) GetItems(ctx context.Context, ids []string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM canteen_items WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	return scanItems(rows)
}

// CreateItem inserts a menu item.
func (r *Repository) CreateItem(ctx context.Context, it Item) (Item, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO canteen_items (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, it.ID, it.Name, it.Description, it.Price, it.Category, it.ImageURL, it.Available)
	if err != nil {
		return Item{}, pkgerrors.WithStack(err)
	}
	return it, nil
}

// SetAvailability flips the available flag.
func (r *Repository) SetAvailability(ctx context.Context, id string, available bool) (Item, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE canteen_items SET available = $2 WHERE id = $1
		RETURNING `+itemColumns, id, available)
	var it Item
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Category, &it.ImageURL, &it.Available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, apperr.NotFound("menu item not found")
		}
		return Item{}, pkgerrors.WithStack(err)
	}
	return it, nil
}

const orderColumns = `o.id, o.user_id, o.items, o.total_amount, o.status, o.order_date, o.pickup_time`

func scanOrder(sc interface{ Scan(...any) error }, o *Order, extra ...any) error {
	dest := append([]any{&o.ID, &o.UserID, &o.Items, &o.Total, &o.Status, &o.OrderDate, &o.PickupTime}, extra...)
	return sc.Scan(dest...)
}

// CreateOrder inserts an order with its line snapshot.
func (r *Repository) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO canteen_orders (id, user_id, items, total_amount, status, order_date)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, o.ID, o.UserID, o.Items, o.Total, o.Status, o.OrderDate)
	if err != nil {
		return Order{}, pkgerrors.WithStack(err)
	}
	return o, nil
}

// GetOrder returns the order, or nil when none exists.
func (r *Repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM canteen_orders o WHERE o.id = $1`, id)
	var o Order
	if err := scanOrder(row, &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.WithStack(err)
	}
	return &o, nil
}

// UpdateOrderStatus changes the status if it still equals from. An existing
// pickup time is kept.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, from, to OrderStatus, pickup *time.Time) (Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE canteen_orders o
		SET status = $3, pickup_time = COALESCE(o.pickup_time, $4)
		WHERE o.id = $1 AND o.status = $2
		RETURNING `+orderColumns, id, from, to, pickup)
	var o Order
	if err := scanOrder(row, &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, apperr.Conflict("Order was updated by someone else, reload and try again")
		}
		return Order{}, pkgerrors.WithStack(err)
	}
	return o, nil
}

// ListOrdersByUser returns the user's latest orders.
func (r *Repository) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM canteen_orders o
		WHERE o.user_id = $1
		ORDER BY o.order_date DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// ListOrders returns the latest orders joined with the customer profile.
func (r *Repository) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`, p.full_name, p.student_id, p.department, p.year
		FROM canteen_orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		ORDER BY o.order_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Order
	for rows.Next() {
		var o Order
		var joined profile.JoinedSummary
		if err := scanOrder(rows, &o, joined.Dest()...); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		o.Customer = joined.Summary()
		res = append(res, o)
	}
	return res, rows.Err()
}
