package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Default page size for product listings.
const DefaultProductLimit = 8

// ProductFilter holds the query-affecting parameters of a product listing.
type ProductFilter struct {
	ProductTypeID *int64
	Search        string
	HasSearch     bool
	SortOrder     string // "asc", "desc" or "" for newest first
	Page          int
	Limit         int
}

// Normalize applies the listing defaults.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultProductLimit
	}
}

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns one page of products matching the filter, with the total
// count of matching rows.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	f.Normalize()

	where := "1=1"
	args := []any{}

	if f.HasSearch && f.Search != "" {
		where += " AND (lower(p.name) LIKE ? OR lower(p.description) LIKE ?)"
		pattern := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.ProductTypeID != nil {
		where += " AND p.product_type_id = ?"
		args = append(args, *f.ProductTypeID)
	}

	var count int
	countQuery := "SELECT COUNT(*) FROM products p WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	order := "p.created_at DESC"
	switch f.SortOrder {
	case "asc":
		order = "p.price ASC"
	case "desc":
		order = "p.price DESC"
	}

	query := `
		SELECT p.id, p.name, p.description, p.rating, p.price, p.in_stock,
		       p.img, p.product_type_id, p.created_at
		FROM products p
		WHERE ` + where + `
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	page := &ProductPage{Count: count, Rows: []Product{}}
	for rows.Next() {
		var p Product
		var typeID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Rating, &p.Price,
			&p.InStock, &p.Img, &typeID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ProductTypeID = typeID.Int64
		page.Rows = append(page.Rows, p)
	}
	return page, rows.Err()
}

// GetByID returns one product with its type joined in, or nil when absent.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.rating, p.price, p.in_stock,
		       p.img, p.product_type_id, p.created_at, t.id, t.name
		FROM products p
		LEFT JOIN product_types t ON t.id = p.product_type_id
		WHERE p.id = ?`

	var p Product
	var typeID sql.NullInt64
	var typeName sql.NullString
	var fkTypeID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Rating, &p.Price, &p.InStock,
		&p.Img, &fkTypeID, &p.CreatedAt, &typeID, &typeName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}

	p.ProductTypeID = fkTypeID.Int64
	if typeID.Valid {
		p.ProductType = &ProductType{ID: typeID.Int64, Name: typeName.String}
	}
	return &p, nil
}

// typeIDValue maps the zero id to NULL so untyped products do not trip
// the foreign key.
func typeIDValue(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// Create inserts a product and returns it with the generated id.
func (r *ProductRepository) Create(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name, description, rating, price, in_stock, img, product_type_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Rating, p.Price, p.InStock, p.Img, typeIDValue(p.ProductTypeID))
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// Update overwrites the mutable fields of a product.
// Returns sql.ErrNoRows when the product does not exist.
func (r *ProductRepository) Update(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, in_stock = ?, product_type_id = ?, img = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Price, p.InStock, typeIDValue(p.ProductTypeID), p.Img, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
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

// Delete removes a product. Returns sql.ErrNoRows when absent.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
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
