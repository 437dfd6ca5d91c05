package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Default page size for order listings.
const DefaultOrderLimit = 10

// OrderFilter holds the query-affecting parameters of an order listing.
type OrderFilter struct {
	Status    string // "", "all" or one of the order statuses
	Search    string // numeric search matches the order id
	HasSearch bool
	Page      int
	Limit     int
	UserID    *int64
	// IncludeUser joins the owning user in, admin listings only.
	IncludeUser bool
}

func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultOrderLimit
	}
}

// NewOrder is the input for creating an order with its line items.
type NewOrder struct {
	UserID          *int64
	TotalAmount     float64
	ShippingAddress string
	Items           []OrderItem
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// List returns one page of orders, newest first, with line items attached.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) (*OrderPage, error) {
	f.Normalize()

	where := "1=1"
	args := []any{}

	if f.Status != "" && f.Status != "all" {
		where += " AND o.status = ?"
		args = append(args, f.Status)
	}
	if f.UserID != nil {
		where += " AND o.user_id = ?"
		args = append(args, *f.UserID)
	}
	if f.HasSearch && f.Search != "" {
		if id, err := strconv.ParseInt(f.Search, 10, 64); err == nil {
			where += " AND o.id = ?"
			args = append(args, id)
		}
	}

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o WHERE "+where, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	query := `
		SELECT o.id, o.date, o.status, o.total_amount, o.shipping_address,
		       COALESCE(o.qr_code_file_name, ''), o.user_id
		FROM orders o
		WHERE ` + where + `
		ORDER BY o.date DESC
		LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		var userID sql.NullInt64
		if err := rows.Scan(&o.ID, &o.Date, &o.Status, &o.TotalAmount,
			&o.ShippingAddress, &o.QRCodeFileName, &userID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if userID.Valid {
			o.UserID = &userID.Int64
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
		if f.IncludeUser && orders[i].UserID != nil {
			user, err := r.loadUser(ctx, *orders[i].UserID)
			if err != nil {
				return nil, err
			}
			orders[i].User = user
		}
	}

	totalPages := (count + f.Limit - 1) / f.Limit
	return &OrderPage{
		Orders:      orders,
		TotalPages:  totalPages,
		CurrentPage: f.Page,
		TotalCount:  count,
	}, nil
}

// GetByID returns one order with line items, or nil when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	var o Order
	var userID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, date, status, total_amount, shipping_address,
		       COALESCE(qr_code_file_name, ''), user_id
		FROM orders WHERE id = ?`, id).Scan(
		&o.ID, &o.Date, &o.Status, &o.TotalAmount, &o.ShippingAddress,
		&o.QRCodeFileName, &userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order %d: %w", id, err)
	}
	if userID.Valid {
		o.UserID = &userID.Int64
	}

	o.Items, err = r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts an order and its line items in one transaction and
// returns the full order.
func (r *OrderRepository) Create(ctx context.Context, in NewOrder) (*Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID any
	if in.UserID != nil {
		userID = *in.UserID
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (status, total_amount, shipping_address, user_id)
		VALUES (?, ?, ?, ?)`,
		StatusPending, in.TotalAmount, in.ShippingAddress, userID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for _, item := range in.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES (?, ?, ?, ?)`,
			orderID, item.ProductID, item.Quantity, item.Price); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	return r.GetByID(ctx, orderID)
}

// UpdateStatus sets the order status. Returns sql.ErrNoRows when absent.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status OrderStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateShippingAddress replaces the shipping address on an order.
// Returns sql.ErrNoRows when absent.
func (r *OrderRepository) UpdateShippingAddress(ctx context.Context, id int64, address string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET shipping_address = ? WHERE id = ?", address, id)
	if err != nil {
		return fmt.Errorf("update order %d shipping address: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetQRCodeFileName records the generated QR reference for an order.
func (r *OrderRepository) SetQRCodeFileName(ctx context.Context, id int64, fileName string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE orders SET qr_code_file_name = ? WHERE id = ?", fileName, id)
	if err != nil {
		return fmt.Errorf("update order %d qr code: %w", id, err)
	}
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price,
		       p.id, p.name, p.description, p.rating, p.price, p.in_stock,
		       p.img, p.product_type_id, p.created_at
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ?
		ORDER BY i.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order %d items: %w", orderID, err)
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		var p Product
		var pid sql.NullInt64
		var name, description, img sql.NullString
		var rating, price sql.NullFloat64
		var inStock sql.NullBool
		var typeID sql.NullInt64
		var createdAt sql.NullTime

		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price,
			&pid, &name, &description, &rating, &price, &inStock,
			&img, &typeID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if pid.Valid {
			p = Product{
				ID:            pid.Int64,
				Name:          name.String,
				Description:   description.String,
				Rating:        rating.Float64,
				Price:         price.Float64,
				InStock:       inStock.Bool,
				Img:           img.String,
				ProductTypeID: typeID.Int64,
				CreatedAt:     createdAt.Time,
			}
			it.Product = &p
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepository) loadUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, address, role FROM users WHERE id = ?", id).Scan(
		&u.ID, &u.Username, &u.Email, &u.Address, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return &u, nil
}
